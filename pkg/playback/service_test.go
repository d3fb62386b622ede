package playback

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	speaking []bool
	waits    int
}

func (c *fakeConn) Speaking(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = append(c.speaking, on)
	return nil
}

func (c *fakeConn) Sink() io.Writer { return writerFunc(c.write) }

func (c *fakeConn) write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *fakeConn) WaitFinished() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits++
	return nil
}

func (c *fakeConn) payload() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

type writerFunc func(p []byte) (int, error)

func (w writerFunc) Write(p []byte) (int, error) { return w(p) }

type fakeTransport struct {
	mu      sync.Mutex
	conns   map[string]*fakeConn
	joins   []string
	leaves  []string
	joinErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conns: make(map[string]*fakeConn)}
}

func (tr *fakeTransport) JoinOrMove(guildID, channelID string) (Connection, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.joinErr != nil {
		return nil, tr.joinErr
	}
	tr.joins = append(tr.joins, guildID+":"+channelID)
	conn, ok := tr.conns[guildID]
	if !ok {
		conn = &fakeConn{}
		tr.conns[guildID] = conn
	}
	return conn, nil
}

func (tr *fakeTransport) Leave(guildID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.leaves = append(tr.leaves, guildID)
}

func (tr *fakeTransport) leaveCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.leaves)
}

func (tr *fakeTransport) conn(guildID string) *fakeConn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.conns[guildID]
}

// fakeTranscoder emits "pcm:<path>" for each file. The optional gate
// blocks the first call so tests can queue further requests while the
// pump is mid-stream.
type fakeTranscoder struct {
	mu      sync.Mutex
	calls   []string
	failOn  string
	gate    chan struct{}
	started chan string
}

func (f *fakeTranscoder) Transcode(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()

	if f.started != nil {
		f.started <- path
	}
	if gate != nil {
		<-gate
	}
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return nil, errors.New("decode failed")
	}
	return io.NopCloser(strings.NewReader("pcm:" + path)), nil
}

func (f *fakeTranscoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTranscoder) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeMetrics struct {
	started  int64
	failed   int64
	rejected int64
}

func (m *fakeMetrics) PlaybackStarted(string) { atomic.AddInt64(&m.started, 1) }
func (m *fakeMetrics) PlaybackFailed(string)  { atomic.AddInt64(&m.failed, 1) }
func (m *fakeMetrics) QueueRejected(string)   { atomic.AddInt64(&m.rejected, 1) }

func newTestService(settings GuildSettings, tr Transport, tc Transcoder, m Metrics) *Service {
	return NewService(settings, tr, tc, m, zerolog.Nop())
}

func TestServicePlaysQueuedClipsInOrder(t *testing.T) {
	transport := newFakeTransport()
	gate := make(chan struct{})
	transcoder := &fakeTranscoder{gate: gate, started: make(chan string, 8)}
	svc := newTestService(GuildSettings{QueueSize: 5}, transport, transcoder, nil)

	require.True(t, svc.Play("g1", "c1", testRequest("a").Clip, "/clips/a.mp3"))
	<-transcoder.started // pump holds the first clip

	require.True(t, svc.Play("g1", "c1", testRequest("b").Clip, "/clips/b.mp3"))
	require.True(t, svc.Play("g1", "c1", testRequest("c").Clip, "/clips/c.mp3"))
	close(gate)

	require.Eventually(t, func() bool {
		return transport.leaveCount() == 1
	}, time.Second, 5*time.Millisecond, "disconnect behavior leaves voice after drain")

	assert.Equal(t, []string{"/clips/a.mp3", "/clips/b.mp3", "/clips/c.mp3"}, transcoder.callList())
	assert.Equal(t, "pcm:/clips/a.mp3pcm:/clips/b.mp3pcm:/clips/c.mp3", transport.conn("g1").payload())

	tracker, ok := svc.Registry().Get("g1")
	require.True(t, ok)
	assert.False(t, tracker.Active())
	assert.Equal(t, 0, tracker.Len())
}

func TestServiceRejectsWhenQueueFull(t *testing.T) {
	transport := newFakeTransport()
	gate := make(chan struct{})
	transcoder := &fakeTranscoder{gate: gate, started: make(chan string, 8)}
	metrics := &fakeMetrics{}
	svc := newTestService(GuildSettings{QueueSize: 1}, transport, transcoder, metrics)

	require.True(t, svc.Play("g1", "c1", testRequest("a").Clip, "/clips/a.mp3"))
	<-transcoder.started // "a" is out of the queue and streaming

	assert.True(t, svc.Play("g1", "c1", testRequest("b").Clip, "/clips/b.mp3"))
	assert.False(t, svc.Play("g1", "c1", testRequest("c").Clip, "/clips/c.mp3"),
		"queue holds one pending request at most")
	assert.Equal(t, int64(1), atomic.LoadInt64(&metrics.rejected))

	close(gate)
	require.Eventually(t, func() bool {
		return transport.leaveCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, transcoder.callCount(), "rejected request is never played")
}

func TestServiceStreamFailureAbandonsQueue(t *testing.T) {
	transport := newFakeTransport()
	gate := make(chan struct{})
	transcoder := &fakeTranscoder{failOn: "b.mp3", gate: gate, started: make(chan string, 8)}
	metrics := &fakeMetrics{}
	svc := newTestService(GuildSettings{QueueSize: 5}, transport, transcoder, metrics)

	require.True(t, svc.Play("g1", "c1", testRequest("a").Clip, "/clips/a.mp3"))
	<-transcoder.started
	require.True(t, svc.Play("g1", "c1", testRequest("b").Clip, "/clips/b.mp3"))
	require.True(t, svc.Play("g1", "c1", testRequest("c").Clip, "/clips/c.mp3"))
	close(gate)

	tracker, _ := svc.Registry().Get("g1")
	require.Eventually(t, func() bool {
		return !tracker.Active()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"/clips/a.mp3", "/clips/b.mp3"}, transcoder.callList(),
		"queued requests after the failed one are abandoned")
	assert.Equal(t, 0, tracker.Len())
	assert.Equal(t, int64(1), atomic.LoadInt64(&metrics.failed))
	assert.Zero(t, transport.leaveCount(), "failed loop exits without disconnecting")

	// A fresh enqueue restarts playback.
	require.True(t, svc.Play("g1", "c1", testRequest("d").Clip, "/clips/d.mp3"))
	require.Eventually(t, func() bool {
		return transport.leaveCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestServiceForcedDisconnectStopsPump(t *testing.T) {
	transport := newFakeTransport()
	gate := make(chan struct{})
	transcoder := &fakeTranscoder{gate: gate, started: make(chan string, 8)}
	svc := newTestService(GuildSettings{QueueSize: 5}, transport, transcoder, nil)

	require.True(t, svc.Play("g1", "c1", testRequest("a").Clip, "/clips/a.mp3"))
	<-transcoder.started
	require.True(t, svc.Play("g1", "c1", testRequest("b").Clip, "/clips/b.mp3"))

	svc.HandleForcedDisconnect("g1")
	tracker, _ := svc.Registry().Get("g1")
	assert.False(t, tracker.Active())
	assert.Equal(t, 0, tracker.Len())

	close(gate)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, transcoder.callCount(),
		"pump stops before dequeuing after a forced disconnect")
	assert.Zero(t, transport.leaveCount(), "connection is already gone")
}

func TestServiceTimeoutBehaviorLeavesAfterIdle(t *testing.T) {
	transport := newFakeTransport()
	transcoder := &fakeTranscoder{}
	svc := newTestService(GuildSettings{
		QueueSize:          3,
		InactivityBehavior: BehaviorTimeout,
		InactiveTimeout:    75 * time.Millisecond,
	}, transport, transcoder, nil)

	require.True(t, svc.Play("g1", "c1", testRequest("a").Clip, "/clips/a.mp3"))

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, transport.leaveCount(), "stays connected until the timeout")

	require.Eventually(t, func() bool {
		return transport.leaveCount() == 1
	}, time.Second, 5*time.Millisecond, "leaves voice once the idle timer fires")
}
