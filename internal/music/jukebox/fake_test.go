package jukebox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/selection"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/track"
)

type fakeResolver struct {
	res sources.Resolution
	err error
}

func (f *fakeResolver) Resolve(context.Context, string) (sources.Resolution, error) {
	return f.res, f.err
}

type fakeSession struct {
	mu      sync.Mutex
	playing bool
	plays   int
	stops   int
}

func (s *fakeSession) Play(context.Context, track.Track) error {
	s.mu.Lock()
	s.playing = true
	s.plays++
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSession) Stop() {
	s.mu.Lock()
	s.playing = false
	s.stops++
	s.mu.Unlock()
}

func (s *fakeSession) Disconnect() error { return nil }

func (s *fakeSession) playCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

func (s *fakeSession) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

type fakeConnector struct {
	mu   sync.Mutex
	err  error
	sess *fakeSession
	// gate, when set, holds Connect until it is closed.
	gate  chan struct{}
	calls atomic.Int32
}

func (c *fakeConnector) Connect(context.Context, string, string) (scheduler.Session, error) {
	c.calls.Add(1)
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sess = &fakeSession{}
	return c.sess, nil
}

func (c *fakeConnector) session() *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

type fakeOccupancy struct {
	mu sync.Mutex
	n  int
}

func (o *fakeOccupancy) Count(string, string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.n
}

func (o *fakeOccupancy) set(n int) {
	o.mu.Lock()
	o.n = n
	o.mu.Unlock()
}

// fakePrompter optionally clicks through onPresent and records Close calls.
type fakePrompter struct {
	onPresent func(h selection.Handle, candidates []track.Track)
	failWith  error

	mu     sync.Mutex
	closed []*track.Track
}

func (p *fakePrompter) Present(_ context.Context, h selection.Handle, candidates []track.Track) error {
	if p.failWith != nil {
		return p.failWith
	}
	if p.onPresent != nil {
		go p.onPresent(h, candidates)
	}
	return nil
}

func (p *fakePrompter) Close(_ selection.Handle, chosen *track.Track) {
	p.mu.Lock()
	p.closed = append(p.closed, chosen)
	p.mu.Unlock()
}

func (p *fakePrompter) closes() []*track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*track.Track(nil), p.closed...)
}

var errUpstream = errors.New("upstream 503")
