// Package radio accepts direct stream links such as internet radio stations
// and plain audio files.
package radio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/track"
)

type Source struct {
	probe *prober
	log   *zap.Logger
}

func New(client *http.Client, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{
		probe: newProber(client),
		log:   log.With(zap.String("source", sources.SourceRadio)),
	}
}

func (s *Source) SourceName() string { return sources.SourceRadio }

// Match accepts any http(s) link. It is consulted after the other sources.
func (s *Source) Match(query string) bool {
	u, err := url.Parse(strings.TrimSpace(query))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve probes the link and accepts it when it serves audio or a playlist.
func (s *Source) Resolve(ctx context.Context, query string) (sources.Resolution, error) {
	query = strings.TrimSpace(query)
	if !s.Match(query) {
		return sources.Invalid(), nil
	}

	info, err := s.probe.inspect(ctx, query)
	switch {
	case errors.Is(err, errNotAudio):
		s.log.Debug("link rejected", zap.String("url", query), zap.Error(err))
		return sources.Invalid(), nil
	case err != nil:
		return sources.Resolution{}, fmt.Errorf("%w: %w", sources.ErrUpstream, err)
	}

	return sources.Single(track.New(info.finalURL, info.title(), "", 0, "").WithSource(sources.SourceRadio)), nil
}

type streamInfo struct {
	finalURL    string
	contentType string
	stationName string
}

func (i streamInfo) title() string {
	if i.stationName != "" {
		return i.stationName
	}
	u, err := url.Parse(i.finalURL)
	if err != nil {
		return i.finalURL
	}
	if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
		return u.Host + "/" + base
	}
	return u.Host
}
