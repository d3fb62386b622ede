package voice

import (
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2
	// 20 ms of audio per Opus frame.
	frameSamples  = 960
	frameBytes    = frameSamples * channels * 2
	frameDuration = 20 * time.Millisecond

	sendTimeout = 100 * time.Millisecond
)

// Connection is one outbound stream to a voice channel. Writes take
// s16le 48 kHz stereo PCM; frames go out as Opus on the session's send
// channel, which paces them at real time.
type Connection struct {
	vc      *discordgo.VoiceConnection
	encoder *gopus.Encoder
	pending []byte
	send    func(frame []byte) error
	logger  zerolog.Logger
}

func newConnection(vc *discordgo.VoiceConnection, logger zerolog.Logger) (*Connection, error) {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("creating opus encoder: %w", err)
	}
	encoder.SetBitrate(128000)
	c := &Connection{vc: vc, encoder: encoder, logger: logger}
	c.send = c.sendFrame
	return c, nil
}

// Speaking toggles the speaking indicator.
func (c *Connection) Speaking(on bool) error {
	return c.vc.Speaking(on)
}

// Sink returns the outbound PCM sink.
func (c *Connection) Sink() io.Writer { return c }

// Write consumes PCM bytes, sending every complete 20 ms frame. A
// trailing partial frame is held until the next write or WaitFinished.
// On error the returned count covers only the bytes consumed by frames
// sent before the failure.
func (c *Connection) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		take := frameBytes - len(c.pending)
		if take > len(p) {
			c.pending = append(c.pending, p...)
			written += len(p)
			break
		}
		c.pending = append(c.pending, p[:take]...)
		if err := c.send(c.pending); err != nil {
			c.pending = c.pending[:0]
			return written, err
		}
		c.pending = c.pending[:0]
		written += take
		p = p[take:]
	}
	return written, nil
}

// WaitFinished flushes any partial trailing frame padded with silence
// and lets the send buffer drain.
func (c *Connection) WaitFinished() error {
	if len(c.pending) > 0 {
		frame := make([]byte, frameBytes)
		copy(frame, c.pending)
		c.pending = c.pending[:0]
		if err := c.send(frame); err != nil {
			return err
		}
	}

	// The send channel holds at most a couple of frames; give them
	// time to play out before the caller drops the speaking flag.
	time.Sleep(4 * frameDuration)
	return nil
}

func (c *Connection) sendFrame(frame []byte) error {
	samples := bytesToInt16(frame)
	opusFrame, err := c.encoder.Encode(samples, frameSamples, frameBytes)
	if err != nil {
		return fmt.Errorf("encoding opus frame: %w", err)
	}

	select {
	case c.vc.OpusSend <- opusFrame:
		return nil
	case <-time.After(sendTimeout):
		// A stalled send channel means the UDP connection died
		// underneath us; dropping one frame is recoverable, so log
		// and move on.
		c.logger.Warn().Str("guild_id", c.vc.GuildID).Msg("opus send channel blocked, dropping frame")
		return nil
	}
}

func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
