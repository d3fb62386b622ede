// Package voice streams raw PCM into Discord voice channels over
// discordgo, encoding to Opus on the way out.
package voice

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/pkg/playback"
)

const (
	joinAttempts = 3
	readyTimeout = 10 * time.Second
)

// GatewayTransport manages voice connections through a discordgo
// session. Connection state lives in the session itself; the transport
// only layers join-or-move semantics and PCM encoding on top.
type GatewayTransport struct {
	session *discordgo.Session
	logger  zerolog.Logger
}

// NewGatewayTransport wraps a connected discordgo session.
func NewGatewayTransport(session *discordgo.Session, logger zerolog.Logger) *GatewayTransport {
	return &GatewayTransport{session: session, logger: logger}
}

// JoinOrMove returns an outbound connection to the given channel. An
// existing connection to the same channel is reused; a connection to a
// different channel in the same guild is torn down first.
func (t *GatewayTransport) JoinOrMove(guildID, channelID string) (playback.Connection, error) {
	if vc, ok := t.session.VoiceConnections[guildID]; ok {
		if vc.ChannelID == channelID && vc.Ready {
			return newConnection(vc, t.logger)
		}
		t.logger.Warn().
			Str("guild_id", guildID).
			Str("old_channel", vc.ChannelID).
			Str("new_channel", channelID).
			Msg("already in a different voice channel, moving")
		vc.Disconnect()
	}

	var vc *discordgo.VoiceConnection
	var err error
	for i := 0; i < joinAttempts; i++ {
		vc, err = t.session.ChannelVoiceJoin(guildID, channelID, false, true)
		if err == nil {
			break
		}
		t.logger.Warn().
			Err(err).
			Str("guild_id", guildID).
			Int("attempt", i+1).
			Msg("voice join failed")
		if i < joinAttempts-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("joining voice after %d attempts: %w", joinAttempts, err)
	}

	if err := waitForReady(vc); err != nil {
		vc.Disconnect()
		return nil, err
	}

	t.logger.Info().
		Str("guild_id", guildID).
		Str("channel_id", channelID).
		Msg("joined voice channel")
	return newConnection(vc, t.logger)
}

// Leave disconnects the guild's voice connection, if any.
func (t *GatewayTransport) Leave(guildID string) {
	if vc, ok := t.session.VoiceConnections[guildID]; ok {
		vc.Disconnect()
		t.logger.Info().Str("guild_id", guildID).Msg("left voice channel")
		return
	}
	t.logger.Debug().Str("guild_id", guildID).Msg("no voice connection to leave")
}

func waitForReady(vc *discordgo.VoiceConnection) error {
	timeout := time.After(readyTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("timed out waiting for voice connection")
		case <-ticker.C:
			if vc.Ready {
				return nil
			}
		}
	}
}
