// Package ffmpeg decodes any input ffmpeg understands into PCM.
package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"guild-jukebox/internal/music/parsers"
	"guild-jukebox/internal/music/track"
)

const Name = "ffmpeg-link"

type Streamer struct {
	Binary string
}

func New(binary string) *Streamer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Streamer{Binary: binary}
}

func (s *Streamer) Name() string { return Name }

// Open decodes the track URI directly.
func (s *Streamer) Open(ctx context.Context, t track.Track, seek time.Duration) (io.ReadCloser, error) {
	return s.OpenURL(ctx, t.SourceURI, seek)
}

// OpenURL decodes a remote link, reconnecting on transient network drops.
func (s *Streamer) OpenURL(ctx context.Context, link string, seek time.Duration) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.Binary, Args(link, seek, true)...)
	r, err := parsers.StartProcess(cmd)
	if err != nil {
		return nil, fmt.Errorf("%s start: %w", s.Binary, err)
	}
	return r, nil
}

// OpenReader decodes whatever arrives on in. in is closed with the stream.
func (s *Streamer) OpenReader(ctx context.Context, in io.ReadCloser, seek time.Duration) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.Binary, Args("pipe:0", seek, false)...)
	cmd.Stdin = in
	r, err := parsers.StartProcess(cmd, in)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("%s start: %w", s.Binary, err)
	}
	return r, nil
}

// Args builds the ffmpeg command line for input.
func Args(input string, seek time.Duration, reconnect bool) []string {
	var args []string
	if seek > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seek.Seconds(), 'f', 3, 64))
	}
	if reconnect {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	return append(args,
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(parsers.SampleRate),
		"-ac", strconv.Itoa(parsers.Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
}
