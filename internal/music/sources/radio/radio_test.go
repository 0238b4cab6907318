package radio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guild-jukebox/internal/music/sources"
)

func TestMatch(t *testing.T) {
	s := New(nil, nil)
	assert.True(t, s.Match("https://stream.example.com/live"))
	assert.True(t, s.Match("http://10.0.0.1:8000/radio.mp3"))
	assert.False(t, s.Match("lofi beats"))
	assert.False(t, s.Match("ftp://example.com/a.mp3"))
	assert.False(t, s.Match("https://"))
}

func TestResolve(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/station", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-name", "Night Jazz FM")
	})
	mux.HandleFunc("/noicy.ogg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ogg; charset=binary")
	})
	mux.HandleFunc("/list.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	})
	mux.HandleFunc("/headless", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "audio/aac")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/station", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(srv.Client(), nil)

	tests := []struct {
		path  string
		kind  sources.Kind
		title string
		uri   string
	}{
		{"/station", sources.KindSingle, "Night Jazz FM", "/station"},
		{"/noicy.ogg", sources.KindSingle, "", "/noicy.ogg"},
		{"/list.m3u8", sources.KindSingle, "", "/list.m3u8"},
		{"/headless", sources.KindSingle, "", "/headless"},
		{"/moved", sources.KindSingle, "Night Jazz FM", "/station"},
		{"/page", sources.KindInvalid, "", ""},
		{"/gone", sources.KindInvalid, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := s.Resolve(context.Background(), srv.URL+tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.kind, res.Kind)
			if tt.kind != sources.KindSingle {
				return
			}
			got := res.Tracks[0]
			assert.Equal(t, srv.URL+tt.uri, got.SourceURI)
			assert.Equal(t, sources.SourceRadio, got.Source)
			assert.Zero(t, got.Duration)
			if tt.title != "" {
				assert.Equal(t, tt.title, got.Title)
			} else {
				assert.NotEmpty(t, got.Title)
			}
		})
	}
}

func TestResolve_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(nil, nil).Resolve(context.Background(), url+"/live")
	assert.ErrorIs(t, err, sources.ErrUpstream)
}
