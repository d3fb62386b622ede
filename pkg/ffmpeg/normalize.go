package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// NormalizeResult is the outcome of a loudness normalization job.
type NormalizeResult int

const (
	// ResultSkipped means the input file does not exist; nothing was
	// touched.
	ResultSkipped NormalizeResult = iota
	// ResultError means the job failed and the working file was
	// restored from its backup.
	ResultError
	// ResultUpdated means the file was normalized in place.
	ResultUpdated
)

func (r NormalizeResult) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultError:
		return "error"
	case ResultUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// runToolFunc executes the external tool, feeding each stderr line to
// onLine. Swapped out in tests.
type runToolFunc func(ctx context.Context, exe string, args []string, onLine func(string)) error

// Normalizer applies ffmpeg's loudnorm filter to clip files in place.
// All jobs share one injected lock: only a single normalization runs
// at a time process-wide, regardless of target file.
type Normalizer struct {
	lock   *sync.Mutex
	run    runToolFunc
	locate func() (string, error)
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer serialized by the given lock.
func NewNormalizer(lock *sync.Mutex, logger zerolog.Logger) *Normalizer {
	return &Normalizer{lock: lock, run: runTool, locate: Locate, logger: logger}
}

// Normalize rewrites inputPath with normalized loudness. The original
// bytes are kept in a "<path>.original" backup for the duration of the
// job: deleted on success, used to restore the file on failure (and
// left behind afterwards as a recovery artifact). A missing input
// reports ResultSkipped with no side effects. The returned error
// carries detail for ResultError; it never reaches past the caller as
// anything but the result code.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string, progress ProgressFunc) (NormalizeResult, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if _, err := os.Stat(inputPath); err != nil {
		n.logger.Info().Str("clip", inputPath).Msg("normalize skipped, input missing")
		return ResultSkipped, nil
	}

	exe, err := n.locate()
	if err != nil {
		return ResultError, err
	}

	backup := inputPath + ".original"
	os.Remove(backup)
	if err := copyFile(inputPath, backup); err != nil {
		return ResultError, fmt.Errorf("creating backup: %w", err)
	}

	router := &progressRouter{report: progress}
	args := []string{
		"-y",
		"-i", backup,
		"-filter:a", "loudnorm",
		inputPath,
	}

	n.logger.Info().Str("clip", inputPath).Msg("beginning loudness normalization")
	if err := n.run(ctx, exe, args, router.processLine); err != nil {
		n.logger.Error().Err(err).Str("clip", inputPath).Msg("loudness normalization failed, restoring backup")
		os.Remove(inputPath)
		if restoreErr := copyFile(backup, inputPath); restoreErr != nil {
			return ResultError, fmt.Errorf("restoring backup after failure (%v): %w", err, restoreErr)
		}
		return ResultError, err
	}

	os.Remove(backup)
	n.logger.Info().Str("clip", inputPath).Msg("completed loudness normalization")
	return ResultUpdated, nil
}

func runTool(ctx context.Context, exe string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, exe, args...)

	// ffmpeg writes progress to stderr; stdout is unused here.
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		onLine(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg exited: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
