package playback

import "sync"

// Registry maps guild ids to their trackers, creating them lazily on
// first use. Entries are never evicted; a tracker is a few hundred
// bytes of state bounded by the number of guilds the bot has served.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	defaults GuildSettings
	onIdle   func(guildID string)
}

// NewRegistry creates a registry handing out trackers with the given
// default settings. onIdle is passed through to each created tracker.
func NewRegistry(defaults GuildSettings, onIdle func(guildID string)) *Registry {
	return &Registry{
		trackers: make(map[string]*Tracker),
		defaults: defaults,
		onIdle:   onIdle,
	}
}

// GetOrCreate returns the tracker for a guild, creating it on first
// use. Concurrent callers for the same guild always receive the same
// tracker instance.
func (r *Registry) GetOrCreate(guildID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.trackers[guildID]; ok {
		return t
	}
	t := NewTracker(guildID, r.defaults, r.onIdle)
	r.trackers[guildID] = t
	return t
}

// Get returns the tracker for a guild if one exists.
func (r *Registry) Get(guildID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[guildID]
	return t, ok
}

// Len returns the number of registered trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
