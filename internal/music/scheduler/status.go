package scheduler

// Status is the playback state of one guild.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusPlaying
	StatusDraining
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusConnecting:
		return "Connecting"
	case StatusPlaying:
		return "Playing"
	case StatusDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}

// IsActive reports whether the guild holds its playback gate.
func (s Status) IsActive() bool {
	return s != StatusIdle
}
