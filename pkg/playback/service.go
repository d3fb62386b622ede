package playback

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/pkg/clips"
)

// Transcoder converts a local audio file into a raw PCM byte stream.
type Transcoder interface {
	Transcode(path string) (io.ReadCloser, error)
}

// Connection is an established outbound voice stream to one channel.
type Connection interface {
	// Speaking toggles the speaking indicator on the transport.
	Speaking(on bool) error
	// Sink is the outbound PCM sink for the connection.
	Sink() io.Writer
	// WaitFinished blocks until buffered audio has been played out.
	WaitFinished() error
}

// Transport manages voice connections per guild.
type Transport interface {
	// JoinOrMove returns the guild's connection, connecting on demand.
	// When already connected to a different channel in the same guild
	// it disconnects first and joins the requested one.
	JoinOrMove(guildID, channelID string) (Connection, error)
	// Leave tears down the guild's voice connection, if any.
	Leave(guildID string)
}

// Metrics receives scheduling events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	PlaybackStarted(guildID string)
	PlaybackFailed(guildID string)
	QueueRejected(guildID string)
}

type nopMetrics struct{}

func (nopMetrics) PlaybackStarted(string) {}
func (nopMetrics) PlaybackFailed(string)  {}
func (nopMetrics) QueueRejected(string)   {}

// Service schedules clip playback across guilds. Each guild gets an
// independent tracker and at most one pump loop; guilds never block
// each other.
type Service struct {
	registry   *Registry
	transport  Transport
	transcoder Transcoder
	metrics    Metrics
	logger     zerolog.Logger
}

// NewService wires the scheduler. metrics may be nil.
func NewService(defaults GuildSettings, transport Transport, transcoder Transcoder, metrics Metrics, logger zerolog.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &Service{
		transport:  transport,
		transcoder: transcoder,
		metrics:    metrics,
		logger:     logger,
	}
	s.registry = NewRegistry(defaults, s.handleIdleTimeout)
	return s
}

// Registry exposes the guild tracker registry.
func (s *Service) Registry() *Registry { return s.registry }

// Play queues a clip for playback in a guild's voice channel. It
// returns false when the guild's queue is full; the caller surfaces
// that to the requester. When the guild was idle, a pump loop is
// started for it.
func (s *Service) Play(guildID, channelID string, clip *clips.Clip, path string) bool {
	tracker := s.registry.GetOrCreate(guildID)
	admitted, start := tracker.Enqueue(Request{
		ChannelID: channelID,
		Clip:      clip,
		Path:      path,
	})
	if !admitted {
		s.metrics.QueueRejected(guildID)
		s.logger.Warn().
			Str("guild_id", guildID).
			Str("clip", clip.Command).
			Int("queue_size", tracker.Settings().QueueSize).
			Msg("playback queue full, request rejected")
		return false
	}

	s.logger.Debug().
		Str("guild_id", guildID).
		Str("clip", clip.Command).
		Int("queued", tracker.Len()).
		Msg("clip queued for playback")

	if start {
		go s.pump(tracker)
	}
	return true
}

// Leave disconnects the bot from a guild's voice channel on request.
func (s *Service) Leave(guildID string) {
	s.transport.Leave(guildID)
}

// HandleForcedDisconnect is called when the transport reports the bot
// was removed from voice out-of-band. The tracker is marked inactive
// at once; the connection is already gone, so no timer is armed.
func (s *Service) HandleForcedDisconnect(guildID string) {
	tracker, ok := s.registry.Get(guildID)
	if !ok {
		return
	}
	dropped := tracker.ForceInactive()
	if dropped > 0 {
		s.logger.Warn().
			Str("guild_id", guildID).
			Int("dropped", dropped).
			Msg("voice connection torn down externally, dropping queued clips")
	} else {
		s.logger.Info().
			Str("guild_id", guildID).
			Msg("voice connection torn down externally")
	}
}

// handleIdleTimeout fires when a timeout-behavior guild has been idle
// for its configured duration.
func (s *Service) handleIdleTimeout(guildID string) {
	s.logger.Info().
		Str("guild_id", guildID).
		Msg("inactivity timeout reached, leaving voice")
	s.transport.Leave(guildID)
}

// pump is the single streaming loop for one tracker. It drains the
// queue one request at a time and exits when the queue is empty or a
// stream fails. It is iterative on purpose; depth never grows with
// queue length.
func (s *Service) pump(t *Tracker) {
	for {
		// A forced disconnect may have landed while the previous
		// item was streaming.
		if !t.Active() {
			return
		}

		req, ok := t.TryDequeue()
		if !ok {
			if t.Settings().InactivityBehavior == BehaviorDisconnect {
				s.transport.Leave(t.GuildID())
			}
			return
		}

		s.metrics.PlaybackStarted(t.GuildID())
		if err := s.streamOne(t.GuildID(), req); err != nil {
			s.metrics.PlaybackFailed(t.GuildID())
			dropped := t.ForceInactive()
			s.logger.Error().
				Err(err).
				Str("guild_id", t.GuildID()).
				Str("clip", req.Clip.Command).
				Int("abandoned", dropped).
				Msg("clip stream failed, stopping playback loop")
			return
		}
	}
}

// streamOne plays a single request end to end: connect, transcode,
// speak, copy, wait for drain.
func (s *Service) streamOne(guildID string, req Request) error {
	conn, err := s.transport.JoinOrMove(guildID, req.ChannelID)
	if err != nil {
		return fmt.Errorf("joining voice channel %s: %w", req.ChannelID, err)
	}

	stream, err := s.transcoder.Transcode(req.Path)
	if err != nil {
		return fmt.Errorf("transcoding %s: %w", req.Path, err)
	}
	defer stream.Close()

	if err := conn.Speaking(true); err != nil {
		return fmt.Errorf("signalling speaking: %w", err)
	}
	defer conn.Speaking(false)

	if _, err := io.Copy(conn.Sink(), stream); err != nil {
		return fmt.Errorf("streaming %s: %w", req.Path, err)
	}
	return conn.WaitFinished()
}
