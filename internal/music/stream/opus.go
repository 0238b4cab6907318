package stream

import (
	"fmt"

	"layeh.com/gopus"

	"guild-jukebox/internal/music/parsers"
)

// NewOpusEncoder returns a music-tuned encoder for 48 kHz stereo.
func NewOpusEncoder() (Encoder, error) {
	enc, err := gopus.NewEncoder(parsers.SampleRate, parsers.Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	return enc, nil
}
