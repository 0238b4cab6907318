// Package youtube resolves YouTube links and free-text searches.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	kkdai "github.com/kkdai/youtube/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"guild-jukebox/internal/music/sources"
	"guild-jukebox/internal/music/track"
	"guild-jukebox/pkg/retrylimit"
)

const (
	defaultBaseURL    = "https://www.youtube.com"
	defaultCandidates = 5
	metadataWorkers   = 3
)

// VideoFetcher loads video metadata. *kkdai.Client satisfies it.
type VideoFetcher interface {
	GetVideoContext(ctx context.Context, id string) (*kkdai.Video, error)
}

type Options struct {
	Candidates int
	RPS        float64
	BaseURL    string
	HTTPClient *http.Client
	Videos     VideoFetcher
	Logger     *zap.Logger
}

type Source struct {
	videos     VideoFetcher
	search     *searcher
	lim        *retrylimit.AdaptiveLimiter
	retry      retrylimit.Config
	candidates int
	log        *zap.Logger
}

func New(opts Options) *Source {
	if opts.Candidates <= 0 {
		opts.Candidates = defaultCandidates
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Videos == nil {
		opts.Videos = &kkdai.Client{HTTPClient: opts.HTTPClient}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.With(zap.String("source", sources.SourceYouTube))
	retry := retrylimit.DefaultConfig()
	retry.Logger = log

	rps := rate.Limit(opts.RPS)
	return &Source{
		videos:     opts.Videos,
		search:     &searcher{baseURL: strings.TrimRight(opts.BaseURL, "/"), client: opts.HTTPClient},
		lim:        retrylimit.NewAdaptiveLimiter(rps, 1, rps*4, 1, 0.5),
		retry:      retry,
		candidates: opts.Candidates,
		log:        log,
	}
}

func (s *Source) SourceName() string { return sources.SourceYouTube }

// Match claims every YouTube link, including ones it will reject as bare.
func (s *Source) Match(query string) bool {
	return isYouTubeURL(query)
}

// Resolve handles both video links and free text. Free text yields up to the
// configured number of candidates.
func (s *Source) Resolve(ctx context.Context, query string) (sources.Resolution, error) {
	query = strings.TrimSpace(query)
	switch {
	case query == "":
		return sources.Invalid(), nil
	case isBareURL(query):
		return sources.Invalid(), nil
	case isYouTubeURL(query):
		return s.resolveLink(ctx, query)
	case isURL(query):
		return sources.Invalid(), nil
	default:
		return s.resolveSearch(ctx, query)
	}
}

func (s *Source) resolveLink(ctx context.Context, link string) (sources.Resolution, error) {
	id, err := kkdai.ExtractVideoID(CleanVideoURL(link))
	if err != nil {
		return sources.Invalid(), nil
	}
	v, err := s.video(ctx, id)
	if err != nil {
		if isUnavailable(err) {
			return sources.NotFound(), nil
		}
		return sources.Resolution{}, fmt.Errorf("%w: video %s: %w", sources.ErrUpstream, id, err)
	}
	return sources.Single(s.toTrack(v)), nil
}

func (s *Source) resolveSearch(ctx context.Context, query string) (sources.Resolution, error) {
	var ids []string
	err := retrylimit.Do(ctx, s.lim, s.retry, func(ctx context.Context) error {
		var err error
		ids, err = s.search.videoIDs(ctx, query, s.candidates)
		return err
	})
	if err != nil {
		return sources.Resolution{}, fmt.Errorf("%w: search: %w", sources.ErrUpstream, err)
	}
	if len(ids) == 0 {
		return sources.NotFound(), nil
	}

	found := make([]*track.Track, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataWorkers)
	for i, id := range ids {
		g.Go(func() error {
			v, err := s.video(gctx, id)
			if err != nil {
				// One broken hit should not sink the whole search.
				s.log.Debug("candidate skipped", zap.String("id", id), zap.Error(err))
				return nil
			}
			t := s.toTrack(v)
			found[i] = &t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sources.Resolution{}, err
	}

	tracks := make([]track.Track, 0, len(found))
	for _, t := range found {
		if t != nil {
			tracks = append(tracks, *t)
		}
	}
	return sources.Candidates(tracks), nil
}

func (s *Source) video(ctx context.Context, id string) (*kkdai.Video, error) {
	var v *kkdai.Video
	err := retrylimit.Do(ctx, s.lim, s.retry, func(ctx context.Context) error {
		var err error
		v, err = s.videos.GetVideoContext(ctx, id)
		if isUnavailable(err) {
			return retrylimit.Permanent(err)
		}
		return err
	})
	return v, err
}

func (s *Source) toTrack(v *kkdai.Video) track.Track {
	thumb := ""
	if n := len(v.Thumbnails); n > 0 {
		thumb = v.Thumbnails[n-1].URL
	}
	return track.New(WatchURL(v.ID), v.Title, "", v.Duration, thumb).WithSource(sources.SourceYouTube)
}

func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var playErr *kkdai.ErrPlayabiltyStatus
	return errors.As(err, &playErr) ||
		errors.Is(err, kkdai.ErrVideoPrivate) ||
		errors.Is(err, kkdai.ErrNotPlayableInEmbed) ||
		errors.Is(err, kkdai.ErrInvalidCharactersInVideoID) ||
		errors.Is(err, kkdai.ErrVideoIDMinLength)
}
