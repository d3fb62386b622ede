// Package blob keeps the local clips directory in sync with remote
// object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/voxclip/voxclip/pkg/clips"
)

// ErrNoRemote is returned when an operation needs object storage but
// the store was built without a client.
var ErrNoRemote = errors.New("no object storage configured")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name string
	Size int64
}

// ObjectClient is the raw object-storage surface the store needs.
type ObjectClient interface {
	Download(ctx context.Context, name string, w io.Writer) (int64, error)
	Upload(ctx context.Context, name string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]ObjectInfo, error)
}

// Store mirrors clip audio between object storage and a local
// directory that ffmpeg reads from. The client may be nil, in which
// case only already-local files are served.
type Store struct {
	client ObjectClient
	dir    string
	logger zerolog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(client ObjectClient, dir string, logger zerolog.Logger) *Store {
	return &Store{client: client, dir: dir, logger: logger}
}

// LocalPath returns where a clip's audio lives on disk.
func (s *Store) LocalPath(clip *clips.Clip) string {
	return filepath.Join(s.dir, clip.FileName)
}

// EnsureLocal downloads the clip's audio if it is not already on disk
// and returns the local path.
func (s *Store) EnsureLocal(ctx context.Context, clip *clips.Clip) (string, error) {
	path := s.LocalPath(clip)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := s.download(ctx, clip.FileName); err != nil {
		return "", err
	}
	return path, nil
}

// Upload pushes a local file into object storage under the clip's file
// name and records the blob reference on the clip.
func (s *Store) Upload(ctx context.Context, clip *clips.Clip, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if s.client == nil {
		return ErrNoRemote
	}

	name := clip.FileName
	if name == "" {
		name = clip.Command + ".mp3"
		clip.FileName = name
	}

	url, err := s.client.Upload(ctx, name, f)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	clip.BlobName = name
	clip.BlobURL = url
	s.logger.Info().Str("blob", name).Msg("uploaded clip audio")
	return nil
}

// Delete removes the clip's object from storage.
func (s *Store) Delete(ctx context.Context, clip *clips.Clip) error {
	if s.client == nil {
		return ErrNoRemote
	}
	return s.client.Delete(ctx, clip.FileName)
}

// DownloadAll pulls every stored object that is missing locally or
// whose local size differs, and returns how many were downloaded.
func (s *Store) DownloadAll(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, ErrNoRemote
	}
	s.logger.Info().Str("dir", s.dir).Msg("syncing clips from object storage")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating clips dir: %w", err)
	}

	objects, err := s.client.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing objects: %w", err)
	}

	downloaded := 0
	for _, obj := range objects {
		path := filepath.Join(s.dir, obj.Name)
		if info, err := os.Stat(path); err == nil && info.Size() == obj.Size {
			continue
		}
		if err := s.download(ctx, obj.Name); err != nil {
			return downloaded, err
		}
		downloaded++
	}

	s.logger.Info().Int("downloaded", downloaded).Msg("clip sync complete")
	return downloaded, nil
}

func (s *Store) download(ctx context.Context, name string) error {
	if s.client == nil {
		return fmt.Errorf("clip %s is not available locally: %w", name, ErrNoRemote)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating clips dir: %w", err)
	}

	path := filepath.Join(s.dir, name)
	os.Remove(path)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	s.logger.Info().Str("blob", name).Msg("downloading clip audio")
	if _, err := s.client.Download(ctx, name, f); err != nil {
		os.Remove(path)
		return fmt.Errorf("downloading %s: %w", name, err)
	}
	return nil
}
