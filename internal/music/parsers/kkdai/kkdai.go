// Package kkdai streams YouTube audio through kkdai/youtube and ffmpeg.
package kkdai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	youtube "github.com/kkdai/youtube/v2"

	"guild-jukebox/internal/music/parsers/ffmpeg"
	"guild-jukebox/internal/music/track"
)

const (
	LinkName = "kkdai-link"
	PipeName = "kkdai-pipe"
)

var ErrNoAudioFormat = errors.New("no audio formats found for video")

// Streamer opens a YouTube track either by handing the signed media URL to
// ffmpeg (link) or by downloading through the client and piping (pipe).
type Streamer struct {
	client *youtube.Client
	ffmpeg *ffmpeg.Streamer
	pipe   bool
}

func NewLink(client *youtube.Client, ff *ffmpeg.Streamer) *Streamer {
	return &Streamer{client: client, ffmpeg: ff}
}

func NewPipe(client *youtube.Client, ff *ffmpeg.Streamer) *Streamer {
	return &Streamer{client: client, ffmpeg: ff, pipe: true}
}

func (s *Streamer) Name() string {
	if s.pipe {
		return PipeName
	}
	return LinkName
}

func (s *Streamer) Open(ctx context.Context, t track.Track, seek time.Duration) (io.ReadCloser, error) {
	video, err := s.client.GetVideoContext(ctx, t.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("[%s] video: %w", s.Name(), err)
	}
	format, err := bestAudio(video.Formats)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", s.Name(), err)
	}

	if !s.pipe {
		link, err := s.client.GetStreamURLContext(ctx, video, format)
		if err != nil {
			return nil, fmt.Errorf("[%s] stream url: %w", s.Name(), err)
		}
		return s.ffmpeg.OpenURL(ctx, link, seek)
	}

	body, _, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("[%s] stream: %w", s.Name(), err)
	}
	return s.ffmpeg.OpenReader(ctx, body, seek)
}

// bestAudio prefers audio-only formats with the highest bitrate and falls
// back to any format that carries audio.
func bestAudio(formats youtube.FormatList) (*youtube.Format, error) {
	withAudio := formats.WithAudioChannels()
	if len(withAudio) == 0 {
		return nil, ErrNoAudioFormat
	}
	candidates := make(youtube.FormatList, 0, len(withAudio))
	for _, f := range withAudio {
		if f.Width == 0 && f.Height == 0 {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		candidates = withAudio
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return &candidates[0], nil
}
