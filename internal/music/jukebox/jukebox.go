// Package jukebox is the command surface of the music bot: it resolves
// queries, runs selections and votes, and hands tracks to the scheduler.
package jukebox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/selection"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/track"
	"guild-jukebox/internal/music/vote"
)

// TrackResolver turns a query into tracks. It must be safe for concurrent use.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) (sources.Resolution, error)
}

// OccupancyProvider counts listeners in a voice channel, not counting the bot.
type OccupancyProvider interface {
	Count(guildID, channelID string) int
}

// Prompter shows a selection to the user and removes it again.
type Prompter interface {
	Present(ctx context.Context, h selection.Handle, candidates []track.Track) error
	// Close is called exactly once per presented prompt; chosen is nil when
	// the prompt expired.
	Close(h selection.Handle, chosen *track.Track)
}

type Config struct {
	SkipThreshold    float64
	AdminInstantSkip bool
	SkipWhenEmpty    bool
	SelectionTimeout time.Duration
	MaxCandidates    int
}

func DefaultConfig() Config {
	return Config{
		SkipThreshold:    0.5,
		AdminInstantSkip: true,
		SkipWhenEmpty:    true,
		SelectionTimeout: 30 * time.Second,
		MaxCandidates:    selection.MaxCandidates,
	}
}

type PlayRequest struct {
	GuildID   string
	UserID    string
	ChannelID string // requester's voice channel, empty when not connected
	Query     string
}

type SkipRequest struct {
	GuildID   string
	UserID    string
	ChannelID string
	IsAdmin   bool
}

// Added describes a track that made it into the queue.
type Added struct {
	Track    track.Track
	Position int
}

// QueueView is what /queue shows.
type QueueView struct {
	Status   scheduler.Status
	Current  *track.Track
	Upcoming []track.Track
}

type Jukebox struct {
	cfg       Config
	resolver  TrackResolver
	sched     *scheduler.Scheduler
	votes     *vote.Coordinator
	broker    *selection.Broker
	occupancy OccupancyProvider
	log       *zap.Logger
}

// New wires a jukebox. votes must be the coordinator the scheduler clears on
// track end.
func New(cfg Config, resolver TrackResolver, sched *scheduler.Scheduler, votes *vote.Coordinator, occupancy OccupancyProvider, log *zap.Logger) *Jukebox {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxCandidates <= 0 || cfg.MaxCandidates > selection.MaxCandidates {
		cfg.MaxCandidates = selection.MaxCandidates
	}
	return &Jukebox{
		cfg:       cfg,
		resolver:  resolver,
		sched:     sched,
		votes:     votes,
		broker:    selection.NewBroker(),
		occupancy: occupancy,
		log:       log.With(zap.String("component", "jukebox")),
	}
}

// Play resolves req.Query, appends the result and makes sure the guild is
// playing. A connect failure is returned together with the Added entry,
// which stays queued.
func (j *Jukebox) Play(ctx context.Context, req PlayRequest, p Prompter) (Added, error) {
	if req.ChannelID == "" {
		return Added{}, ErrNotInVoice
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Added{}, ErrUnsupportedQuery
	}

	res, err := j.resolver.Resolve(ctx, query)
	if err != nil {
		j.log.Warn("resolve failed", zap.String("guild", req.GuildID), zap.String("query", query), zap.Error(err))
		return Added{}, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	var chosen track.Track
	switch res.Kind {
	case sources.KindInvalid:
		return Added{}, ErrUnsupportedQuery
	case sources.KindNotFound:
		return Added{}, ErrNoResults
	case sources.KindSingle:
		chosen = res.Tracks[0]
	case sources.KindCandidates:
		chosen, err = j.choose(ctx, req.UserID, res.Tracks, p)
		if err != nil {
			return Added{}, err
		}
	default:
		return Added{}, fmt.Errorf("%w: unexpected resolution %s", ErrResolution, res.Kind)
	}

	t := chosen.WithRequester(req.UserID)
	added := Added{Track: t, Position: j.sched.Enqueue(req.GuildID, t)}
	j.log.Info("track queued",
		zap.String("guild", req.GuildID),
		zap.String("user", req.UserID),
		zap.String("track", t.DisplayTitle()),
		zap.Int("position", added.Position))

	if err := j.sched.RequestPlayback(ctx, req.GuildID, req.ChannelID); err != nil {
		return added, err
	}
	return added, nil
}

func (j *Jukebox) choose(ctx context.Context, userID string, candidates []track.Track, p Prompter) (track.Track, error) {
	if len(candidates) > j.cfg.MaxCandidates {
		candidates = candidates[:j.cfg.MaxCandidates]
	}
	if p == nil {
		return candidates[0], nil
	}

	h := j.broker.CreatePending(userID, candidates)
	if err := p.Present(ctx, h, candidates); err != nil {
		j.broker.Discard(h)
		return track.Track{}, fmt.Errorf("present selection: %w", err)
	}

	t, err := j.broker.AwaitResult(ctx, h, j.cfg.SelectionTimeout)
	if err != nil {
		p.Close(h, nil)
		if errors.Is(err, selection.ErrSelectionTimedOut) {
			j.log.Debug("selection expired", zap.String("user", userID), zap.String("handle", string(h)))
		}
		return track.Track{}, err
	}
	p.Close(h, &t)
	return t, nil
}

// ResolveSelection records userID's pick for a prompt. Clicks on expired
// prompts are ignored; clicks by anyone but the requester are refused.
func (j *Jukebox) ResolveSelection(h selection.Handle, userID string, index int) error {
	owner, ok := j.broker.Owner(h)
	if !ok {
		return nil
	}
	if owner != userID {
		return ErrNotAuthorized
	}
	return j.broker.Resolve(h, index)
}

// Skip registers a skip vote and stops the track once the vote passes.
// The voter must be in the channel the bot plays in.
func (j *Jukebox) Skip(_ context.Context, req SkipRequest) (vote.Result, error) {
	snap := j.sched.State(req.GuildID)
	if snap.Status != scheduler.StatusPlaying || snap.Current == nil {
		return vote.Result{}, ErrNothingPlaying
	}
	if req.ChannelID == "" || req.ChannelID != snap.ChannelID {
		return vote.Result{}, ErrNotInVoice
	}

	occupancy := j.occupancy.Count(req.GuildID, snap.ChannelID)
	admin := req.IsAdmin && j.cfg.AdminInstantSkip
	res := j.votes.RegisterVote(req.GuildID, req.UserID, occupancy, admin, j.cfg.SkipThreshold)

	switch res.Outcome {
	case vote.InstantSkip:
		j.stopCurrent(req.GuildID)
	case vote.NoOccupants:
		if j.cfg.SkipWhenEmpty {
			j.stopCurrent(req.GuildID)
		}
	}
	j.log.Info("skip vote",
		zap.String("guild", req.GuildID),
		zap.String("user", req.UserID),
		zap.Stringer("outcome", res.Outcome),
		zap.Int("occupancy", occupancy),
		zap.Bool("admin", admin))
	return res, nil
}

func (j *Jukebox) stopCurrent(guildID string) {
	j.votes.Clear(guildID)
	j.sched.Skip(guildID)
}

// ListQueue returns the current track and everything queued behind it.
func (j *Jukebox) ListQueue(guildID string) QueueView {
	snap := j.sched.State(guildID)
	return QueueView{Status: snap.Status, Current: snap.Current, Upcoming: snap.Queued}
}

// RemoveTrack drops a queued track owned by userID.
func (j *Jukebox) RemoveTrack(guildID, userID, trackID string) error {
	return j.sched.Queue(guildID).Remove(trackID, userID)
}

// RemoveAt drops the track at a 1-based queue position.
func (j *Jukebox) RemoveAt(guildID, userID string, position int) (track.Track, error) {
	upcoming := j.sched.Queue(guildID).List()
	if position < 1 || position > len(upcoming) {
		return track.Track{}, ErrNotFound
	}
	t := upcoming[position-1]
	if err := j.RemoveTrack(guildID, userID, t.ID); err != nil {
		return track.Track{}, err
	}
	return t, nil
}

// Stop empties the queue and ends the current track; the scheduler then
// leaves the channel.
func (j *Jukebox) Stop(guildID string) (int, error) {
	removed, skipped := j.sched.Stop(guildID)
	if !skipped && removed == 0 {
		return 0, ErrNothingPlaying
	}
	j.votes.Clear(guildID)
	j.log.Info("playback stopped", zap.String("guild", guildID), zap.Int("removed", removed))
	return removed, nil
}

// PendingSelections is the number of open prompts.
func (j *Jukebox) PendingSelections() int {
	return j.broker.Pending()
}

// State exposes the scheduler view of a guild.
func (j *Jukebox) State(guildID string) scheduler.Snapshot {
	return j.sched.State(guildID)
}
