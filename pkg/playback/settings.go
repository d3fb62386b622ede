package playback

import "time"

// InactivityBehavior controls what happens to a guild's voice connection
// once its playback queue drains.
type InactivityBehavior int

const (
	// BehaviorDisconnect leaves voice immediately when the queue drains.
	BehaviorDisconnect InactivityBehavior = iota
	// BehaviorTimeout leaves voice after InactiveTimeout of silence.
	BehaviorTimeout
	// BehaviorManual stays connected until told otherwise.
	BehaviorManual
)

func (b InactivityBehavior) String() string {
	switch b {
	case BehaviorDisconnect:
		return "disconnect"
	case BehaviorTimeout:
		return "timeout"
	case BehaviorManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseBehavior maps a config string to an InactivityBehavior.
// Unrecognized values fall back to disconnect.
func ParseBehavior(s string) InactivityBehavior {
	switch s {
	case "timeout":
		return BehaviorTimeout
	case "manual":
		return BehaviorManual
	default:
		return BehaviorDisconnect
	}
}

// GuildSettings holds the per-guild scheduling knobs.
type GuildSettings struct {
	QueueSize          int
	InactivityBehavior InactivityBehavior
	InactiveTimeout    time.Duration
}

// DefaultGuildSettings returns the settings used for guilds without
// explicit configuration: a three-slot queue that disconnects as soon
// as playback finishes.
func DefaultGuildSettings() GuildSettings {
	return GuildSettings{
		QueueSize:          3,
		InactivityBehavior: BehaviorDisconnect,
		InactiveTimeout:    0,
	}
}
