package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"guild-jukebox/internal/music/parsers"
)

// maxOpusFrame bounds one encoded 20ms frame.
const maxOpusFrame = 4000

// Encoder turns one PCM frame into an Opus packet. *gopus.Encoder satisfies it.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// SendOpus reads PCM frames from pcm, encodes them and sends each packet on
// out until the stream ends or ctx is done. A short final frame is padded
// with silence. A clean end of stream returns nil.
func SendOpus(ctx context.Context, pcm io.Reader, enc Encoder, out chan<- []byte) error {
	frame := make([]byte, parsers.FrameSize*parsers.Channels*2)
	samples := make([]int16, parsers.FrameSize*parsers.Channels)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := io.ReadFull(pcm, frame)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(frame[n:])
		case err != nil:
			return fmt.Errorf("read pcm: %w", err)
		}

		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
		}
		packet, encErr := enc.Encode(samples, parsers.FrameSize, maxOpusFrame)
		if encErr != nil {
			return fmt.Errorf("encode: %w", encErr)
		}

		select {
		case out <- packet:
		case <-ctx.Done():
			return nil
		}
		if err != nil {
			return nil
		}
	}
}
