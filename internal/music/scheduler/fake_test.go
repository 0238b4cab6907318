package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"guild-jukebox/internal/music/track"
)

type fakeSession struct {
	guildID string
	c       *fakeConnector

	mu      sync.Mutex
	playing bool
	played  []track.Track
	done    chan struct{}
	closed  bool
	failOn  string
	hold    chan struct{}
}

func (f *fakeSession) Play(_ context.Context, t track.Track) error {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == f.failOn {
		return errors.New("stream open failed")
	}
	if n := f.c.active(f.guildID).Add(1); n > 1 {
		f.c.overlap.Store(true)
	}
	f.playing = true
	f.played = append(f.played, t)
	f.done = make(chan struct{})
	return nil
}

func (f *fakeSession) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeSession) Finished() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Stop ends the current track, as a skip or a natural end would.
func (f *fakeSession) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.playing {
		return
	}
	f.playing = false
	f.c.active(f.guildID).Add(-1)
	close(f.done)
}

func (f *fakeSession) Disconnect() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.c.disconnects.Add(1)
	return nil
}

func (f *fakeSession) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.played))
	for i, t := range f.played {
		out[i] = t.Title
	}
	return out
}

type fakeConnector struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	gates    map[string]chan struct{}
	failures map[string]error
	counts   sync.Map

	connects    atomic.Int32
	disconnects atomic.Int32
	overlap     atomic.Bool
	failOn      string
	// holdPlay, when set, delays every Play until it is closed.
	holdPlay chan struct{}
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		sessions: map[string]*fakeSession{},
		gates:    map[string]chan struct{}{},
		failures: map[string]error{},
	}
}

func (c *fakeConnector) active(guildID string) *atomic.Int32 {
	v, _ := c.counts.LoadOrStore(guildID, new(atomic.Int32))
	return v.(*atomic.Int32)
}

// block makes Connect for guildID wait until the returned channel is closed.
func (c *fakeConnector) block(guildID string) chan struct{} {
	ch := make(chan struct{})
	c.mu.Lock()
	c.gates[guildID] = ch
	c.mu.Unlock()
	return ch
}

func (c *fakeConnector) fail(guildID string, err error) {
	c.mu.Lock()
	c.failures[guildID] = err
	c.mu.Unlock()
}

func (c *fakeConnector) Connect(ctx context.Context, guildID, _ string) (Session, error) {
	c.connects.Add(1)
	c.mu.Lock()
	gate := c.gates[guildID]
	err := c.failures[guildID]
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	s := &fakeSession{guildID: guildID, c: c, failOn: c.failOn, hold: c.holdPlay}
	c.mu.Lock()
	c.sessions[guildID] = s
	c.mu.Unlock()
	return s, nil
}

func (c *fakeConnector) session(guildID string) *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[guildID]
}

type recordingVotes struct {
	mu      sync.Mutex
	cleared map[string]int
}

func (v *recordingVotes) Clear(guildID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cleared == nil {
		v.cleared = map[string]int{}
	}
	v.cleared[guildID]++
}

func (v *recordingVotes) count(guildID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cleared[guildID]
}
