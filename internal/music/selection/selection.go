// Package selection pairs a "pick one of N" prompt with the eventual choice.
package selection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"guild-jukebox/internal/music/track"
)

// MaxCandidates bounds the number of choices a prompt can carry.
const MaxCandidates = 5

var (
	ErrOutOfRange        = errors.New("selection index out of range")
	ErrSelectionTimedOut = errors.New("selection timed out")
	ErrUnknownHandle     = errors.New("unknown selection handle")
)

// Handle identifies one pending prompt.
type Handle string

// pending is a single-resolution slot. once guards the slot: whichever of a
// click or the timeout gets there first decides the result.
type pending struct {
	owner      string
	candidates []track.Track

	once    sync.Once
	done    chan struct{}
	choice  track.Track
	expired bool
}

func (p *pending) settle(choice track.Track, expired bool) bool {
	won := false
	p.once.Do(func() {
		p.choice = choice
		p.expired = expired
		close(p.done)
		won = true
	})
	return won
}

// Broker tracks pending prompts by handle. Prompts are independent of each other.
type Broker struct {
	prompts *xsync.MapOf[Handle, *pending]
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{prompts: xsync.NewMapOf[Handle, *pending]()}
}

// CreatePending registers a prompt for ownerID over candidates (at most MaxCandidates
// are kept) and returns its handle.
func (b *Broker) CreatePending(ownerID string, candidates []track.Track) Handle {
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	h := Handle(uuid.NewString())
	b.prompts.Store(h, &pending{
		owner:      ownerID,
		candidates: append([]track.Track(nil), candidates...),
		done:       make(chan struct{}),
	})
	return h
}

// Resolve fills the slot for h with candidate index. Unknown, expired or
// already resolved handles are a silent no-op.
func (b *Broker) Resolve(h Handle, index int) error {
	p, ok := b.prompts.Load(h)
	if !ok {
		return nil
	}
	if index < 0 || index >= len(p.candidates) {
		return ErrOutOfRange
	}
	p.settle(p.candidates[index], false)
	return nil
}

// AwaitResult waits until h is resolved or timeout elapses and releases the
// prompt either way. A timeout that loses the race to a click returns the click.
func (b *Broker) AwaitResult(ctx context.Context, h Handle, timeout time.Duration) (track.Track, error) {
	p, ok := b.prompts.Load(h)
	if !ok {
		return track.Track{}, ErrUnknownHandle
	}
	defer b.prompts.Delete(h)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
	case <-timer.C:
		p.settle(track.Track{}, true)
	case <-ctx.Done():
		if p.settle(track.Track{}, true) {
			return track.Track{}, ctx.Err()
		}
	}

	<-p.done
	if p.expired {
		return track.Track{}, ErrSelectionTimedOut
	}
	return p.choice, nil
}

// Discard expires h without waiting, e.g. when the prompt could not be shown.
func (b *Broker) Discard(h Handle) {
	if p, ok := b.prompts.LoadAndDelete(h); ok {
		p.settle(track.Track{}, true)
	}
}

// Owner returns the user the prompt was created for.
func (b *Broker) Owner(h Handle) (string, bool) {
	p, ok := b.prompts.Load(h)
	if !ok {
		return "", false
	}
	return p.owner, true
}

// Pending returns the number of live prompts.
func (b *Broker) Pending() int {
	return b.prompts.Size()
}
