// Package track defines the playable item descriptor shared by the music packages.
package track

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Track describes one playable item. Values are never mutated after creation;
// copies are passed around instead.
type Track struct {
	ID           string
	SourceURI    string
	Title        string
	RequestedBy  string
	Duration     time.Duration // zero when unknown
	ThumbnailURI string
	Source       string // resolver that produced the track, e.g. "youtube"
}

// New returns a track with a fresh ID.
func New(sourceURI, title, requestedBy string, duration time.Duration, thumbnailURI string) Track {
	return Track{
		ID:           uuid.NewString(),
		SourceURI:    sourceURI,
		Title:        title,
		RequestedBy:  requestedBy,
		Duration:     duration,
		ThumbnailURI: thumbnailURI,
	}
}

// WithRequester returns a copy bound to userID under a fresh ID. Resolved
// candidates become queue entries this way.
func (t Track) WithRequester(userID string) Track {
	t.ID = uuid.NewString()
	t.RequestedBy = userID
	return t
}

// WithSource returns a copy tagged with the resolver name.
func (t Track) WithSource(name string) Track {
	t.Source = name
	return t
}

// DisplayTitle returns the title, falling back to the source URI.
func (t Track) DisplayTitle() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.SourceURI != "":
		return t.SourceURI
	default:
		return "Unknown track"
	}
}

// FormatDuration renders the duration as m:ss or h:mm:ss, or "live" when unknown.
func (t Track) FormatDuration() string {
	if t.Duration <= 0 {
		return "live"
	}
	total := int(t.Duration.Round(time.Second).Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
