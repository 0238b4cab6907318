// Package queue implements the per-guild FIFO of tracks waiting to be played.
package queue

import (
	"errors"
	"slices"
	"sync"

	"guild-jukebox/internal/music/track"
)

var (
	ErrEmptyQueue    = errors.New("queue is empty")
	ErrNotFound      = errors.New("track is not in the queue")
	ErrNotAuthorized = errors.New("track was requested by another user")
)

// GuildQueue is an ordered list of tracks for one guild. Insertion order is
// playback order. The head can be reserved while the scheduler takes it for
// playback; a reserved head cannot be removed.
//
// All methods are safe for concurrent use and never wait on playback.
type GuildQueue struct {
	mu       sync.Mutex
	tracks   []track.Track
	reserved bool
}

// New creates an empty queue.
func New() *GuildQueue {
	return &GuildQueue{tracks: make([]track.Track, 0)}
}

// Append adds t to the tail and returns its 1-based position. Appending an ID
// that is already queued changes nothing and returns the existing position.
func (q *GuildQueue) Append(t track.Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexLocked(t.ID); i >= 0 {
		return i + 1
	}
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

// PeekFront returns the head without removing it.
func (q *GuildQueue) PeekFront() (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return track.Track{}, false
	}
	return q.tracks[0], true
}

// PopFront removes and returns the head, clearing any reservation.
func (q *GuildQueue) PopFront() (track.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return track.Track{}, ErrEmptyQueue
	}
	head := q.tracks[0]
	q.tracks[0] = track.Track{}
	q.tracks = q.tracks[1:]
	q.reserved = false
	return head, nil
}

// Reserve marks the head as taken for playback and returns it.
func (q *GuildQueue) Reserve() (track.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return track.Track{}, false
	}
	q.reserved = true
	return q.tracks[0], true
}

// Unreserve releases the head back to the queue without removing it.
func (q *GuildQueue) Unreserve() {
	q.mu.Lock()
	q.reserved = false
	q.mu.Unlock()
}

// Remove deletes the track with trackID if requesterID asked for it.
// Ownership is checked first; a reserved head is never removed.
func (q *GuildQueue) Remove(trackID, requesterID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(trackID)
	if i < 0 {
		return ErrNotFound
	}
	if q.tracks[i].RequestedBy != requesterID {
		return ErrNotAuthorized
	}
	if i == 0 && q.reserved {
		return ErrNotFound
	}
	q.tracks = slices.Delete(q.tracks, i, i+1)
	return nil
}

// Clear drops every entry except a reserved head and returns how many were dropped.
func (q *GuildQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	keep := 0
	if q.reserved && len(q.tracks) > 0 {
		keep = 1
	}
	dropped := len(q.tracks) - keep
	q.tracks = slices.Delete(q.tracks, keep, len(q.tracks))
	return dropped
}

// IsEmpty reports whether nothing is queued.
func (q *GuildQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of queued tracks, including a reserved head.
func (q *GuildQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// List returns a copy of the queued tracks in playback order.
func (q *GuildQueue) List() []track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.tracks)
}

func (q *GuildQueue) indexLocked(id string) int {
	return slices.IndexFunc(q.tracks, func(t track.Track) bool { return t.ID == id })
}
