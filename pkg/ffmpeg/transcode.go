package ffmpeg

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog"
)

// Transcoder decodes audio files to the fixed voice format: signed
// 16-bit little-endian PCM, two channels, 48 kHz, on stdout.
type Transcoder struct {
	exe    string
	logger zerolog.Logger
}

// NewTranscoder locates ffmpeg and returns a transcoder bound to it.
func NewTranscoder(logger zerolog.Logger) (*Transcoder, error) {
	exe, err := Locate()
	if err != nil {
		return nil, err
	}
	return &Transcoder{exe: exe, logger: logger}, nil
}

// Transcode spawns ffmpeg decoding path and returns its stdout as a
// raw PCM stream. Closing the stream kills the process and reaps it.
func (t *Transcoder) Transcode(path string) (io.ReadCloser, error) {
	cmd := exec.Command(t.exe,
		"-hide_banner",
		"-loglevel", "panic",
		"-i", path,
		"-ac", "2",
		"-f", "s16le",
		"-ar", "48000",
		"pipe:1")

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}
	t.logger.Debug().Str("path", path).Int("pid", cmd.Process.Pid).Msg("ffmpeg decode started")

	// Drain stderr so the process never blocks on a full pipe.
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := stderr.Read(buf); err != nil {
				return
			}
		}
	}()

	return &processStream{ReadCloser: stdout, cmd: cmd}, nil
}

// processStream ties the PCM stream's lifetime to the ffmpeg process.
type processStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (s *processStream) Close() error {
	err := s.ReadCloser.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return err
}
