package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var errNotAudio = errors.New("link does not serve audio")

var audioContentTypes = []string{
	"audio/",
	"video/",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/ogg",
	"application/x-scpls",
	"application/xspf+xml",
	"application/octet-stream",
}

type prober struct {
	client *http.Client
}

func newProber(client *http.Client) *prober {
	if client == nil {
		client = &http.Client{
			Timeout: 5 * time.Second,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		}
	}
	return &prober{client: client}
}

// inspect asks for headers only and falls back to GET for servers that
// refuse HEAD. Icecast and Shoutcast station names come from icy-name.
func (p *prober) inspect(ctx context.Context, rawURL string) (streamInfo, error) {
	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = p.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return streamInfo{}, err
		}
	}
	// Live streams never end; only the headers are needed.
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return streamInfo{}, fmt.Errorf("%w: status %d", errNotAudio, resp.StatusCode)
	}

	info := streamInfo{
		finalURL:    resp.Request.URL.String(),
		contentType: resp.Header.Get("Content-Type"),
		stationName: strings.TrimSpace(resp.Header.Get("icy-name")),
	}
	if isAudioType(info.contentType) || isPlaylistPath(info.finalURL) {
		return info, nil
	}
	return streamInfo{}, fmt.Errorf("%w: content-type %q", errNotAudio, info.contentType)
}

func (p *prober) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Icy-MetaData", "1")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
	}
	return resp, nil
}

func isAudioType(contentType string) bool {
	if i := strings.Index(contentType, ";"); i != -1 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, allowed := range audioContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}

func isPlaylistPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m3u", ".m3u8", ".pls", ".xspf", ".asx":
		return true
	}
	return false
}
