// Package sources turns user queries into playable tracks.
package sources

import (
	"errors"

	"guild-jukebox/internal/music/track"
)

const (
	SourceYouTube = "youtube"
	SourceRadio   = "radio"
)

// ErrUpstream marks failures of the remote catalogue rather than of the query.
var ErrUpstream = errors.New("source unavailable")

// Kind classifies a resolution.
type Kind int

const (
	KindNotFound Kind = iota
	KindSingle
	KindCandidates
	KindInvalid
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "Single"
	case KindCandidates:
		return "Candidates"
	case KindInvalid:
		return "InvalidQuery"
	default:
		return "NotFound"
	}
}

// Resolution is what a query resolved to. Tracks carry no requester yet.
type Resolution struct {
	Kind   Kind
	Tracks []track.Track
}

// Single wraps one directly playable track.
func Single(t track.Track) Resolution {
	return Resolution{Kind: KindSingle, Tracks: []track.Track{t}}
}

// Candidates wraps search hits. Zero hits is NotFound and one hit is Single.
func Candidates(ts []track.Track) Resolution {
	switch len(ts) {
	case 0:
		return NotFound()
	case 1:
		return Single(ts[0])
	default:
		return Resolution{Kind: KindCandidates, Tracks: ts}
	}
}

// NotFound reports a well-formed query without hits.
func NotFound() Resolution {
	return Resolution{Kind: KindNotFound}
}

// Invalid reports a query no source accepts.
func Invalid() Resolution {
	return Resolution{Kind: KindInvalid}
}
