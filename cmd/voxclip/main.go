package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/internal/api"
	"github.com/voxclip/voxclip/internal/commands"
	"github.com/voxclip/voxclip/internal/config"
	"github.com/voxclip/voxclip/internal/handlers"
	"github.com/voxclip/voxclip/internal/metrics"
	"github.com/voxclip/voxclip/pkg/blob"
	"github.com/voxclip/voxclip/pkg/clips"
	"github.com/voxclip/voxclip/pkg/ffmpeg"
	"github.com/voxclip/voxclip/pkg/playback"
	"github.com/voxclip/voxclip/pkg/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg)

	repo, err := clips.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open clip database")
	}
	defer repo.Close()

	store, err := clipStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up clip storage")
	}
	if cfg.SyncOnStart && cfg.S3Bucket != "" {
		n, err := store.DownloadAll(context.Background())
		if err != nil {
			logger.Error().Err(err).Msg("clip sync failed, continuing with local files")
		} else {
			logger.Info().Int("downloaded", n).Msg("clip storage synced")
		}
	}

	transcoder, err := ffmpeg.NewTranscoder(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("ffmpeg not found, cannot play clips")
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create Discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	collector := metrics.New()
	transport := voice.NewGatewayTransport(session, logger)
	player := playback.NewService(cfg.GuildDefaults(), transport, transcoder, collector, logger)
	normalizer := ffmpeg.NewNormalizer(&sync.Mutex{}, logger)

	cmds := commands.NewHandler(repo, store, player, normalizer, collector, cfg.BotOwnerID, logger)
	session.AddHandler(handlers.NewMessageHandler(cmds, cfg.CommandPrefix).Handle)
	session.AddHandler(handlers.NewVoiceStateHandler(player).Handle)

	if err := session.Open(); err != nil {
		logger.Fatal().Err(err).Msg("failed to open Discord session")
	}
	defer session.Close()

	apiServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(repo, store, collector.Handler(), logger),
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http api stopped")
		}
	}()

	logger.Info().Msg("bot is running, press CTRL-C to exit")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http api shutdown failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = zerolog.New(os.Stderr)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return out.Level(level).With().Timestamp().Logger()
}

// clipStore builds the blob-backed clip store. Without a configured
// bucket, clips are served from the local directory only.
func clipStore(cfg *config.Config, logger zerolog.Logger) (*blob.Store, error) {
	if cfg.S3Bucket == "" {
		return blob.NewStore(nil, cfg.ClipsDir, logger), nil
	}

	client, err := blob.NewS3Client(context.Background(), blob.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return blob.NewStore(client, cfg.ClipsDir, logger), nil
}
