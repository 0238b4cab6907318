package jukebox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/selection"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/track"
	"guild-jukebox/internal/music/vote"
)

const (
	guild   = "g1"
	channel = "vc1"
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type rig struct {
	jb        *Jukebox
	resolver  *fakeResolver
	conn      *fakeConnector
	occupancy *fakeOccupancy
	votes     *vote.Coordinator
	sched     *scheduler.Scheduler
}

func newRig(t *testing.T, mutate func(*Config)) *rig {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SelectionTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	r := &rig{
		resolver:  &fakeResolver{},
		conn:      &fakeConnector{},
		occupancy: &fakeOccupancy{n: 4},
		votes:     vote.NewCoordinator(),
	}
	r.sched = scheduler.New(r.conn, scheduler.Options{PollInterval: 5 * time.Millisecond, Votes: r.votes})
	r.jb = New(cfg, r.resolver, r.sched, r.votes, r.occupancy, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.sched.Shutdown(ctx)
	})
	return r
}

func (r *rig) single(title string) {
	r.resolver.res = sources.Single(track.New("https://example.com/"+title, title, "", time.Minute, ""))
}

func (r *rig) play(t *testing.T, user string) Added {
	t.Helper()
	added, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: user, ChannelID: channel, Query: "q"}, nil)
	require.NoError(t, err)
	return added
}

func (r *rig) waitPlaying(t *testing.T, title string) {
	t.Helper()
	require.Eventually(t, func() bool {
		cur := r.jb.ListQueue(guild).Current
		return cur != nil && cur.Title == title
	}, waitFor, tick)
}

func TestPlay_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		query    string
		res      sources.Resolution
		err      error
		want     error
		userFail bool
	}{
		{name: "not in voice", query: "x", want: ErrNotInVoice, userFail: true},
		{name: "blank query", channel: channel, query: "  ", want: ErrUnsupportedQuery, userFail: true},
		{name: "invalid", channel: channel, query: "https://youtube.com/", res: sources.Invalid(), want: ErrUnsupportedQuery, userFail: true},
		{name: "no results", channel: channel, query: "zzz", res: sources.NotFound(), want: ErrNoResults, userFail: true},
		{name: "resolver error", channel: channel, query: "x", err: errUpstream, want: ErrResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, nil)
			r.resolver.res, r.resolver.err = tt.res, tt.err

			_, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: tt.channel, Query: tt.query}, nil)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.userFail, IsUserInput(err))
			assert.True(t, r.sched.Queue(guild).IsEmpty())
		})
	}
}

func TestPlay_SingleStartsPlayback(t *testing.T) {
	r := newRig(t, nil)
	r.single("one")

	added := r.play(t, "u1")

	assert.Equal(t, 1, added.Position)
	assert.Equal(t, "u1", added.Track.RequestedBy)
	r.waitPlaying(t, "one")

	r.single("two")
	added = r.play(t, "u2")
	assert.Equal(t, 1, added.Position, "position counts queued entries behind the current track")

	view := r.jb.ListQueue(guild)
	assert.Equal(t, scheduler.StatusPlaying, view.Status)
	require.Len(t, view.Upcoming, 1)
	assert.Equal(t, "two", view.Upcoming[0].Title)
}

func TestPlay_CandidatesResolvedByClick(t *testing.T) {
	r := newRig(t, nil)
	cands := []track.Track{
		track.New("u/a", "a", "", 0, ""),
		track.New("u/b", "b", "", 0, ""),
		track.New("u/c", "c", "", 0, ""),
	}
	r.resolver.res = sources.Candidates(cands)

	p := &fakePrompter{}
	p.onPresent = func(h selection.Handle, got []track.Track) {
		assert.Len(t, got, 3)
		assert.ErrorIs(t, r.jb.ResolveSelection(h, "intruder", 0), ErrNotAuthorized)
		assert.ErrorIs(t, r.jb.ResolveSelection(h, "u1", 9), selection.ErrOutOfRange)
		assert.NoError(t, r.jb.ResolveSelection(h, "u1", 1))
	}

	added, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: channel, Query: "b"}, p)
	require.NoError(t, err)

	assert.Equal(t, "b", added.Track.Title)
	assert.NotEqual(t, cands[1].ID, added.Track.ID, "queued entry gets its own identity")
	closes := p.closes()
	require.Len(t, closes, 1)
	require.NotNil(t, closes[0])
	assert.Equal(t, "b", closes[0].Title)
	assert.Zero(t, r.jb.PendingSelections())
	r.waitPlaying(t, "b")
}

func TestPlay_SelectionTimeoutAddsNothing(t *testing.T) {
	r := newRig(t, func(c *Config) { c.SelectionTimeout = 20 * time.Millisecond })
	r.resolver.res = sources.Candidates([]track.Track{
		track.New("u/a", "a", "", 0, ""),
		track.New("u/b", "b", "", 0, ""),
	})
	p := &fakePrompter{}

	_, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: channel, Query: "x"}, p)

	assert.ErrorIs(t, err, ErrSelectionTimedOut)
	assert.False(t, IsUserInput(err))
	assert.True(t, r.sched.Queue(guild).IsEmpty())
	assert.Equal(t, []*track.Track{nil}, p.closes())
	assert.Zero(t, r.jb.PendingSelections())
}

func TestPlay_PresentFailureReleasesPrompt(t *testing.T) {
	r := newRig(t, nil)
	r.resolver.res = sources.Candidates([]track.Track{
		track.New("u/a", "a", "", 0, ""),
		track.New("u/b", "b", "", 0, ""),
	})
	p := &fakePrompter{failWith: errors.New("missing access")}

	_, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: channel, Query: "x"}, p)

	assert.Error(t, err)
	assert.Zero(t, r.jb.PendingSelections())
	assert.Empty(t, p.closes())
}

func TestPlay_CandidatesWithoutPrompterTakeFirst(t *testing.T) {
	r := newRig(t, nil)
	r.resolver.res = sources.Candidates([]track.Track{
		track.New("u/a", "a", "", 0, ""),
		track.New("u/b", "b", "", 0, ""),
	})

	added := r.play(t, "u1")
	assert.Equal(t, "a", added.Track.Title)
}

func TestPlay_ConnectFailureKeepsTrack(t *testing.T) {
	r := newRig(t, nil)
	r.conn.err = errors.New("missing permissions")
	r.single("one")

	added, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: channel, Query: "q"}, nil)

	assert.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, "one", added.Track.Title)
	assert.Equal(t, 1, r.sched.Queue(guild).Len())
	assert.Equal(t, scheduler.StatusIdle, r.jb.ListQueue(guild).Status)

	r.conn.mu.Lock()
	r.conn.err = nil
	r.conn.mu.Unlock()
	r.single("two")
	r.play(t, "u1")
	r.waitPlaying(t, "one")
}

func TestSkip_NothingPlaying(t *testing.T) {
	r := newRig(t, nil)
	_, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1", ChannelID: channel})
	assert.ErrorIs(t, err, ErrNothingPlaying)
}

func TestSkip_VoterMustShareChannel(t *testing.T) {
	r := newRig(t, nil)
	r.single("one")
	r.play(t, "u1")
	r.waitPlaying(t, "one")

	_, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1", ChannelID: "elsewhere"})
	assert.ErrorIs(t, err, ErrNotInVoice)
	_, err = r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1"})
	assert.ErrorIs(t, err, ErrNotInVoice)
}

func TestSkip_QuorumAdvances(t *testing.T) {
	r := newRig(t, nil)
	r.single("one")
	r.play(t, "u1")
	r.single("two")
	r.play(t, "u1")
	r.waitPlaying(t, "one")

	req := SkipRequest{GuildID: guild, UserID: "u1", ChannelID: channel}
	res, err := r.jb.Skip(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, vote.VoteRecorded, res.Outcome)
	assert.Equal(t, 1, res.Needed)

	res, err = r.jb.Skip(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, vote.AlreadyVoted, res.Outcome)

	req.UserID = "u2"
	res, err = r.jb.Skip(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, vote.InstantSkip, res.Outcome)

	r.waitPlaying(t, "two")
	assert.Zero(t, r.votes.Count(guild))
}

func TestSkip_OccupancySampledPerVote(t *testing.T) {
	r := newRig(t, nil)
	r.single("one")
	r.play(t, "u1")
	r.waitPlaying(t, "one")

	r.occupancy.set(10)
	res, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1", ChannelID: channel})
	require.NoError(t, err)
	assert.Equal(t, vote.VoteRecorded, res.Outcome)
	assert.Equal(t, 4, res.Needed)

	// Most listeners left; the next vote sees the smaller room.
	r.occupancy.set(3)
	res, err = r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u2", ChannelID: channel})
	require.NoError(t, err)
	assert.Equal(t, vote.InstantSkip, res.Outcome)
}

func TestSkip_AdminOverride(t *testing.T) {
	r := newRig(t, nil)
	r.occupancy.set(10)
	r.single("one")
	r.play(t, "u1")
	r.waitPlaying(t, "one")

	_, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1", ChannelID: channel})
	require.NoError(t, err)
	require.Equal(t, 1, r.votes.Count(guild))

	res, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "admin", ChannelID: channel, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, vote.InstantSkip, res.Outcome)
	assert.Zero(t, r.votes.Count(guild))
	assert.Equal(t, 1, r.conn.session().stopCount())
	require.Eventually(t, func() bool {
		return r.jb.ListQueue(guild).Status == scheduler.StatusIdle
	}, waitFor, tick)
}

func TestSkip_AdminOverrideDisabled(t *testing.T) {
	r := newRig(t, func(c *Config) { c.AdminInstantSkip = false })
	r.occupancy.set(10)
	r.single("one")
	r.play(t, "u1")
	r.waitPlaying(t, "one")

	res, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "admin", ChannelID: channel, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, vote.VoteRecorded, res.Outcome)
}

func TestSkip_NoOccupantsPolicy(t *testing.T) {
	for _, skipWhenEmpty := range []bool{true, false} {
		r := newRig(t, func(c *Config) { c.SkipWhenEmpty = skipWhenEmpty })
		r.occupancy.set(0)
		r.single("one")
		r.play(t, "u1")
		r.waitPlaying(t, "one")

		res, err := r.jb.Skip(context.Background(), SkipRequest{GuildID: guild, UserID: "u1", ChannelID: channel})
		require.NoError(t, err)
		assert.Equal(t, vote.NoOccupants, res.Outcome)

		stops := 0
		if skipWhenEmpty {
			stops = 1
		}
		assert.Equal(t, stops, r.conn.session().stopCount(), "skipWhenEmpty=%v", skipWhenEmpty)
	}
}

func TestRemove(t *testing.T) {
	r := newRig(t, nil)
	r.single("one")
	first := r.play(t, "u1")
	r.waitPlaying(t, "one")
	r.single("two")
	second := r.play(t, "u1")
	r.single("three")
	third := r.play(t, "u2")

	assert.ErrorIs(t, r.jb.RemoveTrack(guild, "u1", first.Track.ID), ErrNotFound, "playing track")
	assert.ErrorIs(t, r.jb.RemoveTrack(guild, "u2", second.Track.ID), ErrNotAuthorized)
	assert.Equal(t, 2, r.sched.Queue(guild).Len())

	require.NoError(t, r.jb.RemoveTrack(guild, "u1", second.Track.ID))
	assert.Equal(t, 1, r.sched.Queue(guild).Len())

	_, err := r.jb.RemoveAt(guild, "u2", 5)
	assert.ErrorIs(t, err, ErrNotFound)
	removed, err := r.jb.RemoveAt(guild, "u2", 1)
	require.NoError(t, err)
	assert.Equal(t, third.Track.ID, removed.ID)
	assert.True(t, r.sched.Queue(guild).IsEmpty())
}

func TestStop(t *testing.T) {
	r := newRig(t, nil)
	_, err := r.jb.Stop(guild)
	assert.ErrorIs(t, err, ErrNothingPlaying)

	r.single("one")
	r.play(t, "u1")
	r.waitPlaying(t, "one")
	r.single("two")
	r.play(t, "u1")

	removed, err := r.jb.Stop(guild)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.Eventually(t, func() bool {
		return r.jb.ListQueue(guild).Status == scheduler.StatusIdle
	}, waitFor, tick)
}

func TestStopWhileJoiningVoice(t *testing.T) {
	r := newRig(t, nil)
	gate := make(chan struct{})
	r.conn.gate = gate
	r.single("one")

	done := make(chan error, 1)
	go func() {
		_, err := r.jb.Play(context.Background(), PlayRequest{GuildID: guild, UserID: "u1", ChannelID: channel, Query: "q"}, nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return r.conn.calls.Load() == 1 }, waitFor, tick)
	assert.Equal(t, scheduler.StatusConnecting, r.jb.ListQueue(guild).Status)

	removed, err := r.jb.Stop(guild)
	require.NoError(t, err, "stop while joining is not a no-op")
	assert.Zero(t, removed)

	close(gate)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		return r.jb.ListQueue(guild).Status == scheduler.StatusIdle
	}, waitFor, tick)
	assert.Zero(t, r.conn.session().playCount())
	assert.Empty(t, r.jb.ListQueue(guild).Upcoming)
}
