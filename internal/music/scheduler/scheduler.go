// Package scheduler owns per-guild playback: one gate, one queue and at most
// one active stream per guild, advancing automatically until the queue drains.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"guild-jukebox/internal/music/queue"
	"guild-jukebox/internal/music/track"
)

var (
	ErrConnectFailed = errors.New("voice connect failed")
	ErrShutdown      = errors.New("scheduler is shut down")
)

const (
	defaultPollInterval = time.Second
	eventBuffer         = 64
)

// VoteClearer resets the skip vote of a guild when its track changes.
type VoteClearer interface {
	Clear(guildID string)
}

type noVotes struct{}

func (noVotes) Clear(string) {}

// Options configures a Scheduler. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	Votes        VoteClearer
	Logger       *zap.Logger
}

// Snapshot is a point-in-time view of one guild.
type Snapshot struct {
	GuildID   string
	Status    Status
	Current   *track.Track
	ChannelID string
	Queued    []track.Track
}

type guildPlayback struct {
	id    string
	gate  *semaphore.Weighted
	queue *queue.GuildQueue

	mu        sync.Mutex
	status    Status
	session   Session
	current   *track.Track
	channelID string
	// skipPending stops the current track as soon as its stream starts.
	skipPending bool
	// halted ends the drain loop before the next track plays.
	halted bool
}

func (g *guildPlayback) setStatus(s Status) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
}

// release returns the guild to idle and opens the gate.
func (g *guildPlayback) release() {
	g.mu.Lock()
	g.session = nil
	g.current = nil
	g.status = StatusIdle
	g.skipPending = false
	g.halted = false
	g.mu.Unlock()
	g.gate.Release(1)
}

func (g *guildPlayback) isHalted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

func (g *guildPlayback) channel() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.channelID
}

// Scheduler drives playback for every guild the bot serves.
type Scheduler struct {
	voice  Connector
	votes  VoteClearer
	log    *zap.Logger
	poll   time.Duration
	guilds *xsync.MapOf[string, *guildPlayback]
	events chan Event

	// lifecycle orders drain starts against Shutdown.
	lifecycle sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a scheduler that joins voice through c.
func New(c Connector, opts Options) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Votes == nil {
		opts.Votes = noVotes{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		voice:  c,
		votes:  opts.Votes,
		log:    opts.Logger.With(zap.String("component", "scheduler")),
		poll:   opts.PollInterval,
		guilds: xsync.NewMapOf[string, *guildPlayback](),
		events: make(chan Event, eventBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Events delivers playback lifecycle events. Events are dropped when nobody
// drains the channel fast enough.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

func (s *Scheduler) guild(guildID string) *guildPlayback {
	g, _ := s.guilds.LoadOrCompute(guildID, func() *guildPlayback {
		return &guildPlayback{
			id:    guildID,
			gate:  semaphore.NewWeighted(1),
			queue: queue.New(),
		}
	})
	return g
}

// Enqueue appends t to the guild queue and returns its 1-based position.
// It does not start playback; call RequestPlayback afterwards.
func (s *Scheduler) Enqueue(guildID string, t track.Track) int {
	return s.guild(guildID).queue.Append(t)
}

// Queue returns the queue of a guild, creating the guild state on first use.
func (s *Scheduler) Queue(guildID string) *queue.GuildQueue {
	return s.guild(guildID).queue
}

// State reports what a guild is doing right now.
func (s *Scheduler) State(guildID string) Snapshot {
	snap := Snapshot{GuildID: guildID, Status: StatusIdle}
	g, ok := s.guilds.Load(guildID)
	if !ok {
		return snap
	}
	g.mu.Lock()
	snap.Status = g.status
	snap.ChannelID = g.channelID
	if g.current != nil {
		cur := *g.current
		snap.Current = &cur
	}
	g.mu.Unlock()
	snap.Queued = g.queue.List()
	return snap
}

// Guilds lists every guild that has scheduler state.
func (s *Scheduler) Guilds() []string {
	ids := make([]string, 0, s.guilds.Size())
	s.guilds.Range(func(id string, _ *guildPlayback) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// RequestPlayback starts the drain loop for a guild unless one is already
// running or the queue is empty. channelID updates the voice channel to join;
// an empty value keeps the last one.
//
// On connect failure the queue is left untouched, unless the guild was
// stopped meanwhile, and the error wraps ErrConnectFailed.
func (s *Scheduler) RequestPlayback(ctx context.Context, guildID, channelID string) error {
	if s.ctx.Err() != nil {
		return ErrShutdown
	}
	g := s.guild(guildID)
	if !g.gate.TryAcquire(1) {
		s.log.Debug("playback already active", zap.String("guild", guildID))
		return nil
	}

	g.mu.Lock()
	if channelID != "" {
		g.channelID = channelID
	}
	g.status = StatusConnecting
	g.mu.Unlock()

	head, ok := g.queue.Reserve()
	if !ok {
		g.release()
		return nil
	}

	sess, err := s.connect(ctx, g)
	if err != nil {
		s.dropOrUnreserve(g)
		g.release()
		s.log.Warn("voice connect failed",
			zap.String("guild", guildID),
			zap.String("track", head.DisplayTitle()),
			zap.Error(err))
		return err
	}

	s.lifecycle.Lock()
	if s.ctx.Err() != nil {
		s.lifecycle.Unlock()
		s.disconnect(g, sess)
		g.queue.Unreserve()
		g.release()
		return ErrShutdown
	}
	s.wg.Add(1)
	s.lifecycle.Unlock()

	go s.drain(g, sess)
	return nil
}

// dropOrUnreserve gives a reserved head back to the queue, or discards it
// when the guild was stopped while connecting.
func (s *Scheduler) dropOrUnreserve(g *guildPlayback) {
	if g.isHalted() {
		_, _ = g.queue.PopFront()
		return
	}
	g.queue.Unreserve()
}

func (s *Scheduler) connect(ctx context.Context, g *guildPlayback) (Session, error) {
	g.setStatus(StatusConnecting)
	ch := g.channel()
	if ch == "" {
		return nil, fmt.Errorf("%w: no voice channel", ErrConnectFailed)
	}
	sess, err := s.voice.Connect(ctx, g.id, ch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return sess, nil
}

// drain runs while the guild holds its gate. The head of the queue is
// reserved on entry.
func (s *Scheduler) drain(g *guildPlayback, sess Session) {
	defer s.wg.Done()

	drained := false
	for {
		t, err := g.queue.PopFront()
		if err != nil {
			drained = true
			break
		}

		g.mu.Lock()
		if g.halted {
			g.mu.Unlock()
			s.log.Info("stopped before playback", zap.String("guild", g.id), zap.String("track", t.DisplayTitle()))
			drained = true
			break
		}
		g.session = sess
		g.current = &t
		g.status = StatusPlaying
		g.skipPending = false
		g.mu.Unlock()

		s.log.Info("track started", zap.String("guild", g.id), zap.String("track", t.DisplayTitle()))
		s.emit(Event{Kind: EventTrackStarted, GuildID: g.id, Track: t})

		s.play(g, sess, t)

		s.votes.Clear(g.id)
		g.mu.Lock()
		g.current = nil
		g.status = StatusDraining
		g.mu.Unlock()
		s.emit(Event{Kind: EventTrackEnded, GuildID: g.id, Track: t})

		if s.ctx.Err() != nil {
			break
		}
		next, ok := g.queue.Reserve()
		if !ok {
			drained = true
			break
		}
		if l, ok := sess.(Liveness); ok && !l.Connected() {
			s.log.Info("voice session lost, reconnecting", zap.String("guild", g.id))
			s.disconnect(g, sess)
			sess, err = s.connect(s.ctx, g)
			if err != nil {
				s.dropOrUnreserve(g)
				s.log.Error("reconnect failed", zap.String("guild", g.id), zap.Error(err))
				s.emit(Event{Kind: EventPlaybackFailed, GuildID: g.id, Track: next, Err: err})
				break
			}
		}
	}

	s.disconnect(g, sess)
	g.release()

	if !drained {
		return
	}
	s.log.Info("queue drained", zap.String("guild", g.id))
	s.emit(Event{Kind: EventQueueDrained, GuildID: g.id})

	// An append may have landed between the empty check and the release.
	if s.ctx.Err() == nil && !g.queue.IsEmpty() {
		if err := s.RequestPlayback(s.ctx, g.id, ""); err != nil {
			s.emit(Event{Kind: EventPlaybackFailed, GuildID: g.id, Err: err})
		}
	}
}

func (s *Scheduler) play(g *guildPlayback, sess Session, t track.Track) {
	if err := sess.Play(s.ctx, t); err != nil {
		s.log.Warn("track failed to start",
			zap.String("guild", g.id),
			zap.String("track", t.DisplayTitle()),
			zap.Error(err))
		s.emit(Event{Kind: EventPlaybackFailed, GuildID: g.id, Track: t, Err: err})
		return
	}

	// A skip that landed before the stream existed had nothing to stop.
	g.mu.Lock()
	pending := g.skipPending
	g.mu.Unlock()
	if pending {
		sess.Stop()
	}

	var finished <-chan struct{}
	if f, ok := sess.(Finisher); ok {
		finished = f.Finished()
	}
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-finished:
			return
		case <-ticker.C:
			if !sess.IsPlaying() {
				return
			}
		case <-s.ctx.Done():
			sess.Stop()
			return
		}
	}
}

func (s *Scheduler) disconnect(g *guildPlayback, sess Session) {
	if sess == nil {
		return
	}
	if err := sess.Disconnect(); err != nil {
		s.log.Warn("voice disconnect failed", zap.String("guild", g.id), zap.Error(err))
	}
}

// Skip stops the current stream of a guild. The drain loop then advances to
// the next track. It reports false when nothing is playing.
func (s *Scheduler) Skip(guildID string) bool {
	g, ok := s.guilds.Load(guildID)
	if !ok {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusPlaying || g.session == nil {
		return false
	}
	g.skipPending = true
	g.session.Stop()
	s.log.Info("track skipped", zap.String("guild", guildID))
	return true
}

// Stop clears the queued tracks of a guild and ends playback, which lets the
// drain loop disconnect. A guild that is still connecting or between tracks
// never starts its reserved track. It reports the number of removed entries
// and whether playback was active.
func (s *Scheduler) Stop(guildID string) (int, bool) {
	g, ok := s.guilds.Load(guildID)
	if !ok {
		return 0, false
	}
	removed := g.queue.Clear()

	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.status {
	case StatusIdle:
		return removed, false
	case StatusPlaying:
		if g.session != nil {
			g.skipPending = true
			g.session.Stop()
		}
	default:
		g.halted = true
	}
	return removed, true
}

// Shutdown stops every stream and waits for drain loops to disconnect or for
// ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.lifecycle.Lock()
	s.cancel()
	s.lifecycle.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) emit(e Event) {
	select {
	case s.events <- e:
	default:
		s.log.Warn("event channel full, dropping event",
			zap.String("guild", e.GuildID),
			zap.Stringer("kind", e.Kind))
	}
}
