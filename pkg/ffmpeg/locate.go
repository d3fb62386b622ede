// Package ffmpeg adapts the external ffmpeg tool: streaming decode to
// raw PCM for voice playback, and serialized loudness normalization.
package ffmpeg

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNotFound means no ffmpeg executable could be located. This is a
// configuration problem; callers abort rather than retry.
var ErrNotFound = errors.New("ffmpeg executable not found")

// Locate finds the ffmpeg executable, preferring a copy dropped next
// to the process working directory over the system PATH.
func Locate() (string, error) {
	cwd, err := os.Getwd()
	if err == nil {
		for _, name := range []string{"ffmpeg", "ffmpeg.exe"} {
			candidate := filepath.Join(cwd, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}
	return "", ErrNotFound
}
