// Package parsers opens a track as raw PCM: signed 16-bit little endian,
// 48 kHz, stereo.
package parsers

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"guild-jukebox/internal/music/track"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
)

// BytesPerSecond of the PCM every streamer produces.
const BytesPerSecond = SampleRate * Channels * 2

type Streamer interface {
	Name() string
	Open(ctx context.Context, t track.Track, seek time.Duration) (io.ReadCloser, error)
}

// processStream is the stdout of a running decoder. Close kills the process
// and reaps it.
type processStream struct {
	io.ReadCloser
	cmd     *exec.Cmd
	closers []io.Closer
	once    sync.Once
}

// StartProcess runs cmd and returns its stdout. extra closers (e.g. an
// upstream HTTP body feeding stdin) are closed together with the process.
func StartProcess(cmd *exec.Cmd, extra ...io.Closer) (io.ReadCloser, error) {
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &processStream{ReadCloser: out, cmd: cmd, closers: extra}, nil
}

func (p *processStream) Close() error {
	var errs []error
	p.once.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		for _, c := range p.closers {
			errs = append(errs, c.Close())
		}
		// Wait closes stdout; a killed process always reports an exit error.
		_ = p.cmd.Wait()
	})
	return errors.Join(errs...)
}
