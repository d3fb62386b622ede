package playback

import (
	"sync"
	"time"

	"github.com/voxclip/voxclip/pkg/clips"
)

// Request is a single admitted play request. It is created on enqueue,
// consumed exactly once by the pump, and never retried.
type Request struct {
	ChannelID string
	Clip      *clips.Clip
	Path      string
}

// Tracker is the per-guild playback state machine. It owns the bounded
// FIFO queue of pending requests and the guild's activity state.
//
// At most one pump loop may run per tracker. The tracker is inactive
// exactly when its queue is empty and nothing is streaming.
type Tracker struct {
	guildID  string
	settings GuildSettings

	mu            sync.Mutex
	queue         []Request
	active        bool
	inactiveSince time.Time

	// timerGen invalidates a pending inactivity timer when the tracker
	// re-activates before it fires.
	timer    *time.Timer
	timerGen uint64

	onIdle func(guildID string)
}

// NewTracker creates an inactive tracker for a guild. onIdle is invoked
// at most once per inactive period when the timeout behavior's timer
// expires; it runs on the timer goroutine and may call back into the
// tracker.
func NewTracker(guildID string, settings GuildSettings, onIdle func(guildID string)) *Tracker {
	if settings.QueueSize <= 0 {
		settings.QueueSize = DefaultGuildSettings().QueueSize
	}
	return &Tracker{
		guildID:       guildID,
		settings:      settings,
		queue:         make([]Request, 0, settings.QueueSize),
		inactiveSince: time.Now(),
		onIdle:        onIdle,
	}
}

// GuildID returns the owning guild's id.
func (t *Tracker) GuildID() string { return t.guildID }

// Settings returns the tracker's scheduling settings.
func (t *Tracker) Settings() GuildSettings { return t.settings }

// Enqueue admits a request into the queue. It returns admitted=false
// without any state change when the queue is full; that is backpressure,
// not an error. start=true means the tracker just transitioned from
// inactive to active and the caller must start a pump loop.
func (t *Tracker) Enqueue(req Request) (admitted, start bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) >= t.settings.QueueSize {
		return false, false
	}

	if !t.active {
		t.activateLocked()
		start = true
	}
	t.queue = append(t.queue, req)
	return true, start
}

// TryDequeue pops the head of the queue. When the queue is empty it
// transitions the tracker to inactive, arming the inactivity timer if
// the guild's behavior is timeout, and returns ok=false.
func (t *Tracker) TryDequeue() (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		t.deactivateLocked(true)
		return Request{}, false
	}

	if !t.active {
		t.activateLocked()
	}
	req := t.queue[0]
	t.queue = t.queue[1:]
	return req, true
}

// ForceInactive marks the tracker inactive immediately, dropping any
// queued requests. Used when the voice connection is torn down from
// outside; no timer is armed because there is nothing left to disconnect.
// It returns the number of requests dropped.
func (t *Tracker) ForceInactive() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := len(t.queue)
	t.queue = t.queue[:0]
	t.deactivateLocked(false)
	return dropped
}

// Active reports whether a pump loop currently owns this tracker.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Len returns the number of queued requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// TimeInactive returns how long the tracker has been inactive, or zero
// while active.
func (t *Tracker) TimeInactive() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return 0
	}
	return time.Since(t.inactiveSince)
}

func (t *Tracker) activateLocked() {
	t.active = true
	t.inactiveSince = time.Time{}
	t.timerGen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) deactivateLocked(armTimer bool) {
	// Inactive to inactive is a no-op. Arming here would leave any
	// pending timer live alongside the new one, and both would fire.
	if !t.active {
		return
	}
	t.active = false
	t.inactiveSince = time.Now()

	if !armTimer || t.settings.InactivityBehavior != BehaviorTimeout {
		return
	}

	gen := t.timerGen
	t.timer = time.AfterFunc(t.settings.InactiveTimeout, func() {
		t.mu.Lock()
		// A re-activation between firing and acquiring the lock
		// invalidates the notification.
		stale := gen != t.timerGen || t.active
		if !stale {
			t.timer = nil
		}
		cb := t.onIdle
		t.mu.Unlock()

		if !stale && cb != nil {
			cb(t.guildID)
		}
	})
}
