package scheduler

import "guild-jukebox/internal/music/track"

// EventKind identifies a playback lifecycle event.
type EventKind int

const (
	EventTrackStarted EventKind = iota
	EventTrackEnded
	EventQueueDrained
	EventPlaybackFailed
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventTrackStarted:
		return "TrackStarted"
	case EventTrackEnded:
		return "TrackEnded"
	case EventQueueDrained:
		return "QueueDrained"
	case EventPlaybackFailed:
		return "PlaybackFailed"
	default:
		return "Unknown"
	}
}

// Event is published on Scheduler.Events.
type Event struct {
	Kind    EventKind
	GuildID string
	Track   track.Track
	Err     error
}
