// Package commands implements the bot's prefix commands.
package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/pkg/clips"
	"github.com/voxclip/voxclip/pkg/ffmpeg"
)

// Player schedules clip playback per guild.
type Player interface {
	Play(guildID, channelID string, clip *clips.Clip, path string) bool
	Leave(guildID string)
	HandleForcedDisconnect(guildID string)
}

// ClipFiles resolves clip audio to local files.
type ClipFiles interface {
	EnsureLocal(ctx context.Context, clip *clips.Clip) (string, error)
}

// Normalizer runs loudness normalization on a local clip file.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string, progress ffmpeg.ProgressFunc) (ffmpeg.NormalizeResult, error)
}

// NormalizeMetrics records normalization outcomes.
type NormalizeMetrics interface {
	NormalizationFinished(result string)
}

// Handler holds the dependencies shared by all commands.
type Handler struct {
	repo       clips.Repository
	files      ClipFiles
	player     Player
	normalizer Normalizer
	metrics    NormalizeMetrics
	ownerID    string
	logger     zerolog.Logger
}

// NewHandler wires the command handler. normalizer and metrics may be
// nil; the normalize command reports unavailability when they are.
func NewHandler(repo clips.Repository, files ClipFiles, player Player, normalizer Normalizer, metrics NormalizeMetrics, ownerID string, logger zerolog.Logger) *Handler {
	return &Handler{
		repo:       repo,
		files:      files,
		player:     player,
		normalizer: normalizer,
		metrics:    metrics,
		ownerID:    ownerID,
		logger:     logger,
	}
}

// userVoiceChannel returns the voice channel the user is currently in,
// or "" when they are not in voice.
func userVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return ""
		}
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}
