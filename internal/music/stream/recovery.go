package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"guild-jukebox/internal/music/parsers"
	"guild-jukebox/internal/music/track"
)

const maxRecoveryAttempts = 3

// RecoveryStream reopens a track at the current position when its stream
// ends early. Tracks with unknown duration are live and never recovered.
type RecoveryStream struct {
	ctx      context.Context
	opener   *Opener
	track    track.Track
	current  *TrackStream
	read     int64
	position time.Duration
	retries  map[string]int
	log      *zap.Logger
}

// OpenRecovering opens t and wraps it for recovery.
func (o *Opener) OpenRecovering(ctx context.Context, t track.Track) (*RecoveryStream, error) {
	ts, err := o.Open(ctx, t, 0)
	if err != nil {
		return nil, err
	}
	return &RecoveryStream{
		ctx:     ctx,
		opener:  o,
		track:   t,
		current: ts,
		retries: map[string]int{},
		log:     o.log,
	}, nil
}

func (r *RecoveryStream) Read(p []byte) (int, error) {
	for {
		n, err := r.current.Read(p)
		r.read += int64(n)
		r.position = time.Duration(r.read) * time.Second / parsers.BytesPerSecond
		if n > 0 || !errors.Is(err, io.EOF) {
			return n, err
		}
		if !r.reopen() {
			return 0, io.EOF
		}
	}
}

// reopen reports whether a fresh stream replaced the exhausted one.
func (r *RecoveryStream) reopen() bool {
	if r.track.Duration <= 0 || r.ctx.Err() != nil {
		return false
	}
	// Within a few seconds of the end the EOF is genuine.
	if r.track.Duration-r.position < 3*time.Second {
		return false
	}

	parser := r.current.Parser
	if r.retries[parser] >= maxRecoveryAttempts {
		r.log.Warn("recovery attempts exhausted", zap.String("parser", parser), zap.String("track", r.track.DisplayTitle()))
		return false
	}
	r.retries[parser]++
	r.log.Info("stream ended early, reopening",
		zap.String("parser", parser),
		zap.Duration("position", r.position),
		zap.Int("attempt", r.retries[parser]))

	_ = r.current.Close()
	next, err := r.opener.openFrom(r.ctx, r.track, r.position, r.opener.index(r.track.Source, parser))
	if err != nil {
		r.log.Warn("recovery failed", zap.Error(err))
		return false
	}
	r.current = next
	return true
}

// Position is how much audio has been read so far.
func (r *RecoveryStream) Position() time.Duration { return r.position }

// Parser names the streamer currently in use.
func (r *RecoveryStream) Parser() string { return r.current.Parser }

func (r *RecoveryStream) Close() error {
	return r.current.Close()
}
