// Package source_resolver picks the source that owns a query.
package source_resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"guild-jukebox/internal/music/sources"
)

// SourceResolver tries link-specific sources in order, then the fallback
// link source, and sends free text to the search source.
type SourceResolver struct {
	linked   []sources.Source
	fallback sources.Source
	search   sources.Source
	log      *zap.Logger
}

// New builds a resolver. search handles free text; fallback handles links no
// other source claims. Either may be nil.
func New(search, fallback sources.Source, log *zap.Logger, linked ...sources.Source) *SourceResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &SourceResolver{
		linked:   linked,
		fallback: fallback,
		search:   search,
		log:      log.With(zap.String("component", "source_resolver")),
	}
}

// Resolve implements the jukebox TrackResolver.
func (r *SourceResolver) Resolve(ctx context.Context, query string) (sources.Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return sources.Invalid(), nil
	}

	src := r.pick(query)
	if src == nil {
		return sources.Invalid(), nil
	}

	res, err := src.Resolve(ctx, query)
	if err != nil {
		return sources.Resolution{}, fmt.Errorf("%s: %w", src.SourceName(), err)
	}
	r.log.Debug("query resolved",
		zap.String("source", src.SourceName()),
		zap.Stringer("kind", res.Kind),
		zap.Int("tracks", len(res.Tracks)))
	return res, nil
}

func (r *SourceResolver) pick(query string) sources.Source {
	if !isURL(query) {
		// Bare "youtube.com" style links are not URLs by scheme but are
		// still owned by their source.
		for _, s := range r.linked {
			if s.Match(query) {
				return s
			}
		}
		return r.search
	}
	for _, s := range r.linked {
		if s.Match(query) {
			return s
		}
	}
	if r.fallback != nil && r.fallback.Match(query) {
		return r.fallback
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
