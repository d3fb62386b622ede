package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(run runToolFunc) *Normalizer {
	n := NewNormalizer(&sync.Mutex{}, zerolog.Nop())
	n.locate = func() (string, error) { return "/usr/bin/ffmpeg", nil }
	n.run = run
	return n
}

func writeClip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalizeMissingInputSkips(t *testing.T) {
	dir := t.TempDir()
	n := newTestNormalizer(func(context.Context, string, []string, func(string)) error {
		t.Fatal("tool must not run for a missing input")
		return nil
	})

	result, err := n.Normalize(context.Background(), filepath.Join(dir, "nope.mp3"), nil)
	assert.Equal(t, ResultSkipped, result)
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "skip must leave no backup behind")
}

func TestNormalizeSuccess(t *testing.T) {
	dir := t.TempDir()
	path := writeClip(t, dir, "clip.mp3", "raw-audio")

	var gotProgress []float64
	n := newTestNormalizer(func(_ context.Context, _ string, args []string, onLine func(string)) error {
		// The tool reads the backup and writes the original path.
		assert.Contains(t, args, path+".original")
		assert.Contains(t, args, "loudnorm")
		onLine("  Duration: 00:00:02.00, start: 0.000000")
		onLine("size= 1kB time=00:00:01.00 bitrate=1kbits/s")
		onLine("size= 2kB time=00:00:02.00 bitrate=1kbits/s")
		return os.WriteFile(path, []byte("normalized-audio"), 0o644)
	})

	result, err := n.Normalize(context.Background(), path, func(f float64) {
		gotProgress = append(gotProgress, f)
	})
	require.NoError(t, err)
	assert.Equal(t, ResultUpdated, result)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "normalized-audio", string(data))

	assert.NoFileExists(t, path+".original", "backup is removed on success")
	require.Len(t, gotProgress, 2)
	assert.InDelta(t, 0.5, gotProgress[0], 0.001)
	assert.InDelta(t, 1.0, gotProgress[1], 0.001)
}

func TestNormalizeFailureRestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeClip(t, dir, "clip.mp3", "pristine-audio")

	n := newTestNormalizer(func(context.Context, string, []string, func(string)) error {
		// Simulate a partial write before the tool dies.
		os.WriteFile(path, []byte("half-writ"), 0o644)
		return errors.New("filter blew up")
	})

	result, err := n.Normalize(context.Background(), path, nil)
	assert.Equal(t, ResultError, result)
	assert.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "pristine-audio", string(data), "working file restored byte for byte")

	backup, readErr := os.ReadFile(path + ".original")
	require.NoError(t, readErr)
	assert.Equal(t, "pristine-audio", string(backup), "backup remains after a failure")
}

func TestNormalizeStaleBackupOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := writeClip(t, dir, "clip.mp3", "current")
	writeClip(t, dir, "clip.mp3.original", "stale-backup")

	n := newTestNormalizer(func(context.Context, string, []string, func(string)) error {
		return errors.New("boom")
	})

	result, _ := n.Normalize(context.Background(), path, nil)
	assert.Equal(t, ResultError, result)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data), "restore uses the fresh backup, not the stale one")
}

func TestNormalizeMissingToolIsError(t *testing.T) {
	dir := t.TempDir()
	path := writeClip(t, dir, "clip.mp3", "audio")

	n := NewNormalizer(&sync.Mutex{}, zerolog.Nop())
	n.locate = func() (string, error) { return "", ErrNotFound }

	result, err := n.Normalize(context.Background(), path, nil)
	assert.Equal(t, ResultError, result)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoFileExists(t, path+".original", "no backup before the tool is located")
}

func TestNormalizeJobsAreSerialized(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", "a")
	b := writeClip(t, dir, "b.mp3", "b")

	var running, maxRunning int64
	lock := &sync.Mutex{}

	makeNormalizer := func() *Normalizer {
		n := NewNormalizer(lock, zerolog.Nop())
		n.locate = func() (string, error) { return "/usr/bin/ffmpeg", nil }
		n.run = func(context.Context, string, []string, func(string)) error {
			now := atomic.AddInt64(&running, 1)
			for {
				prev := atomic.LoadInt64(&maxRunning)
				if now <= prev || atomic.CompareAndSwapInt64(&maxRunning, prev, now) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		}
		return n
	}

	var wg sync.WaitGroup
	for _, path := range []string{a, b} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			result, err := makeNormalizer().Normalize(context.Background(), p, nil)
			assert.NoError(t, err)
			assert.Equal(t, ResultUpdated, result)
		}(path)
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&maxRunning),
		"jobs on different files share the one lock")
}
