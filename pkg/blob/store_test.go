package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxclip/voxclip/pkg/clips"
)

type fakeObjectClient struct {
	objects   map[string][]byte
	downloads []string
	uploads   []string
	deletes   []string
	listErr   error
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{objects: make(map[string][]byte)}
}

func (f *fakeObjectClient) Download(_ context.Context, name string, w io.Writer) (int64, error) {
	data, ok := f.objects[name]
	if !ok {
		return 0, errors.New("no such object: " + name)
	}
	f.downloads = append(f.downloads, name)
	n, err := w.Write(data)
	return int64(n), err
}

func (f *fakeObjectClient) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.objects[name] = buf.Bytes()
	f.uploads = append(f.uploads, name)
	return "https://blobs.example/" + name, nil
}

func (f *fakeObjectClient) Delete(_ context.Context, name string) error {
	delete(f.objects, name)
	f.deletes = append(f.deletes, name)
	return nil
}

func (f *fakeObjectClient) List(context.Context) ([]ObjectInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var infos []ObjectInfo
	for name, data := range f.objects {
		infos = append(infos, ObjectInfo{Name: name, Size: int64(len(data))})
	}
	return infos, nil
}

func TestEnsureLocalDownloadsOnce(t *testing.T) {
	dir := t.TempDir()
	client := newFakeObjectClient()
	client.objects["airhorn.mp3"] = []byte("audio-bytes")
	store := NewStore(client, dir, zerolog.Nop())

	clip := &clips.Clip{Command: "airhorn", FileName: "airhorn.mp3"}

	path, err := store.EnsureLocal(context.Background(), clip)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "airhorn.mp3"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	// Second call hits the local copy.
	_, err = store.EnsureLocal(context.Background(), clip)
	require.NoError(t, err)
	assert.Len(t, client.downloads, 1)
}

func TestEnsureLocalMissingObject(t *testing.T) {
	store := NewStore(newFakeObjectClient(), t.TempDir(), zerolog.Nop())
	clip := &clips.Clip{Command: "ghost", FileName: "ghost.mp3"}

	_, err := store.EnsureLocal(context.Background(), clip)
	assert.Error(t, err)
	assert.NoFileExists(t, store.LocalPath(clip), "failed download leaves no partial file")
}

func TestUploadRecordsBlobReference(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "upload-me.mp3")
	require.NoError(t, os.WriteFile(src, []byte("fresh-audio"), 0o644))

	client := newFakeObjectClient()
	store := NewStore(client, dir, zerolog.Nop())

	clip := &clips.Clip{Command: "fresh"}
	require.NoError(t, store.Upload(context.Background(), clip, src))

	assert.Equal(t, "fresh.mp3", clip.FileName, "file name defaults to the command")
	assert.Equal(t, "fresh.mp3", clip.BlobName)
	assert.Equal(t, "https://blobs.example/fresh.mp3", clip.BlobURL)
	assert.Equal(t, []byte("fresh-audio"), client.objects["fresh.mp3"])
}

func TestDownloadAllSyncsBySize(t *testing.T) {
	dir := t.TempDir()
	client := newFakeObjectClient()
	client.objects["a.mp3"] = []byte("aaaa")
	client.objects["b.mp3"] = []byte("bbbb")
	client.objects["c.mp3"] = []byte("cccc")

	// a is current, b is stale (wrong size), c is missing.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.mp3"), []byte("bb"), 0o644))

	store := NewStore(client, dir, zerolog.Nop())
	downloaded, err := store.DownloadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, downloaded)

	data, err := os.ReadFile(filepath.Join(dir, "b.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(data))
	assert.FileExists(t, filepath.Join(dir, "c.mp3"))
}

func TestDeleteRemovesObject(t *testing.T) {
	client := newFakeObjectClient()
	client.objects["x.mp3"] = []byte("x")
	store := NewStore(client, t.TempDir(), zerolog.Nop())

	require.NoError(t, store.Delete(context.Background(), &clips.Clip{FileName: "x.mp3"}))
	assert.Empty(t, client.objects)
}
