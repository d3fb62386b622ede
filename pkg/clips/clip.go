package clips

import "time"

// Clip is a stored audio clip and its metadata. The scheduler treats
// clips as read-only; only the play counter changes after creation, and
// the command surface updates it, not the playback core.
type Clip struct {
	ID          string
	Name        string
	Command     string
	Aliases     []string
	Description string

	CreatedBy     string
	CreatedOnUTC  time.Time
	ModifiedBy    string
	ModifiedOnUTC time.Time

	// Provenance of the cut, when the clip was trimmed from a video.
	YoutubeID           string
	OriginalStartTimeMs int
	OriginalEndTimeMs   int

	Counter  int
	Tags     []string
	FileName string
	BlobName string
	BlobURL  string
}

// LengthMs returns the clip duration derived from the original cut
// points.
func (c *Clip) LengthMs() int {
	return c.OriginalEndTimeMs - c.OriginalStartTimeMs
}

// HasTag reports whether the clip carries the given tag.
func (c *Clip) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
