package ffmpeg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"guild-jukebox/internal/music/track"
)

func TestArgs(t *testing.T) {
	got := Args("https://example.com/a.mp3", 0, true)
	assert.Equal(t, []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", "https://example.com/a.mp3",
		"-vn",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "warning",
		"pipe:1",
	}, got)

	got = Args("pipe:0", 90500*time.Millisecond, false)
	assert.Equal(t, []string{"-ss", "90.500", "-i", "pipe:0"}, got[:4])
	assert.NotContains(t, got, "-reconnect")
}

func TestOpen_MissingBinary(t *testing.T) {
	s := New("/nonexistent/ffmpeg-for-tests")
	_, err := s.Open(context.Background(), track.Track{SourceURI: "https://example.com/a.mp3"}, 0)
	assert.Error(t, err)
	assert.Equal(t, Name, s.Name())
}
