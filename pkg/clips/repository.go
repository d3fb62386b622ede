package clips

import "errors"

// ErrNotFound is returned when a clip id or command matches nothing.
var ErrNotFound = errors.New("clip not found")

// Repository is the clip metadata store.
type Repository interface {
	// All returns every clip ordered by name.
	All() ([]*Clip, error)
	// Get returns the clip with the given id, or ErrNotFound.
	Get(id string) (*Clip, error)
	// GetByCommand resolves a clip by its invocation command, falling
	// back to aliases. Returns ErrNotFound when nothing matches.
	GetByCommand(command string) (*Clip, error)
	// Create stores a new clip, assigning an id when empty.
	Create(clip *Clip) error
	// Update replaces the stored clip with the same id.
	Update(clip *Clip) error
	// Remove deletes a clip by id.
	Remove(id string) error
	// ByTags returns clips carrying at least one of the given tags.
	ByTags(tags []string) ([]*Clip, error)
	// AllTags returns the distinct tag set across all clips, sorted.
	AllTags() ([]string, error)
	// MostPlayed returns clips by descending play counter. limit <= 0
	// means no limit.
	MostPlayed(limit int) ([]*Clip, error)
	// IncrementCounter bumps a clip's play counter by one.
	IncrementCounter(id string) error
}
