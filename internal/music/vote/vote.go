// Package vote runs the per-guild skip vote.
package vote

import (
	"math"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// Outcome is the result of registering a single vote.
type Outcome int

const (
	VoteRecorded Outcome = iota
	AlreadyVoted
	InstantSkip
	NoOccupants
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case VoteRecorded:
		return "VoteRecorded"
	case AlreadyVoted:
		return "AlreadyVoted"
	case InstantSkip:
		return "InstantSkip"
	case NoOccupants:
		return "NoOccupants"
	default:
		return "Unknown"
	}
}

// Result carries the outcome plus the tally at the time of the vote.
// Needed is the number of further votes required; zero once quorum is reached.
type Result struct {
	Outcome  Outcome
	Needed   int
	SoFar    int
	Required int
}

type voteSet struct {
	mu     sync.Mutex
	voters map[string]struct{}
}

// Coordinator keeps one voter set per guild.
type Coordinator struct {
	sets *xsync.MapOf[string, *voteSet]
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{sets: xsync.NewMapOf[string, *voteSet]()}
}

// RegisterVote records voterID's skip vote for guildID.
//
// occupancy is the live number of listeners in the voter's channel, bot excluded,
// sampled by the caller for every vote. threshold is the fraction of occupancy
// that must vote. adminOverride skips immediately without touching the set.
func (c *Coordinator) RegisterVote(guildID, voterID string, occupancy int, adminOverride bool, threshold float64) Result {
	if adminOverride {
		return Result{Outcome: InstantSkip}
	}

	set := c.set(guildID)
	set.mu.Lock()
	defer set.mu.Unlock()

	if _, ok := set.voters[voterID]; ok {
		return Result{Outcome: AlreadyVoted, SoFar: len(set.voters)}
	}
	if occupancy <= 0 {
		return Result{Outcome: NoOccupants, SoFar: len(set.voters)}
	}

	set.voters[voterID] = struct{}{}
	required := Required(occupancy, threshold)
	votes := len(set.voters)

	if votes >= required {
		clear(set.voters)
		return Result{Outcome: InstantSkip, SoFar: votes, Required: required}
	}
	return Result{Outcome: VoteRecorded, Needed: required - votes, SoFar: votes, Required: required}
}

// Clear drops all votes for guildID. Safe to call on an empty set.
func (c *Coordinator) Clear(guildID string) {
	set, ok := c.sets.Load(guildID)
	if !ok {
		return
	}
	set.mu.Lock()
	clear(set.voters)
	set.mu.Unlock()
}

// Count returns the number of distinct voters for guildID.
func (c *Coordinator) Count(guildID string) int {
	set, ok := c.sets.Load(guildID)
	if !ok {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.voters)
}

func (c *Coordinator) set(guildID string) *voteSet {
	set, _ := c.sets.LoadOrCompute(guildID, func() *voteSet {
		return &voteSet{voters: make(map[string]struct{})}
	})
	return set
}

// Required returns how many votes skip a track for the given occupancy.
// Never less than one.
func Required(occupancy int, threshold float64) int {
	return max(1, int(math.Round(float64(occupancy)*threshold)))
}
