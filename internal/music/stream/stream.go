// Package stream opens tracks as PCM and feeds them to a voice connection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"guild-jukebox/internal/music/parsers"
	"guild-jukebox/internal/music/track"
)

// Opener tries the streamers registered for a track's source in order.
type Opener struct {
	bySource map[string][]parsers.Streamer
	fallback []parsers.Streamer
	log      *zap.Logger
}

func NewOpener(log *zap.Logger, fallback ...parsers.Streamer) *Opener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Opener{
		bySource: map[string][]parsers.Streamer{},
		fallback: fallback,
		log:      log.With(zap.String("component", "stream")),
	}
}

// Register sets the streamers used for tracks from source, in preference order.
func (o *Opener) Register(source string, streamers ...parsers.Streamer) {
	o.bySource[source] = streamers
}

func (o *Opener) streamers(source string) []parsers.Streamer {
	if s, ok := o.bySource[source]; ok && len(s) > 0 {
		return s
	}
	return o.fallback
}

// TrackStream is an open PCM stream plus the streamer that produced it.
type TrackStream struct {
	io.ReadCloser
	Track  track.Track
	Parser string
}

// Open returns the first stream that starts successfully.
func (o *Opener) Open(ctx context.Context, t track.Track, seek time.Duration) (*TrackStream, error) {
	return o.openFrom(ctx, t, seek, 0)
}

func (o *Opener) openFrom(ctx context.Context, t track.Track, seek time.Duration, start int) (*TrackStream, error) {
	list := o.streamers(t.Source)
	if len(list) == 0 {
		return nil, fmt.Errorf("no streamer for source %q", t.Source)
	}

	var errs []error
	for i := start; i < len(list); i++ {
		s := list[i]
		r, err := s.Open(ctx, t, seek)
		if err == nil {
			return &TrackStream{ReadCloser: r, Track: t, Parser: s.Name()}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.log.Warn("streamer failed, trying next",
			zap.String("parser", s.Name()),
			zap.String("track", t.DisplayTitle()),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, fmt.Errorf("all streamers failed for %q: %w", t.DisplayTitle(), errors.Join(errs...))
}

func (o *Opener) index(source, name string) int {
	for i, s := range o.streamers(source) {
		if s.Name() == name {
			return i
		}
	}
	return 0
}
