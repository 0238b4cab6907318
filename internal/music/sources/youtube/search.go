package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"guild-jukebox/pkg/retrylimit"
)

var watchIDPattern = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

// searcher scrapes the public results page; it needs no API key.
type searcher struct {
	baseURL string
	client  *http.Client
}

func (s *searcher) videoIDs(ctx context.Context, query string, limit int) ([]string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, retrylimit.Permanent(err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		serr := &retrylimit.StatusError{Code: resp.StatusCode, URL: searchURL}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retrylimit.Permanent(serr)
		}
		return nil, serr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return extractIDs(body, limit), nil
}

// extractIDs returns up to limit distinct video IDs in page order.
func extractIDs(page []byte, limit int) []string {
	seen := make(map[string]struct{}, limit)
	var ids []string
	for _, m := range watchIDPattern.FindAllSubmatch(page, -1) {
		id := string(m[1])
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids
}
