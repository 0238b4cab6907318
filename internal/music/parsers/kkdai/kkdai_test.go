package kkdai

import (
	"testing"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestAudio(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, AudioChannels: 2, Bitrate: 500000, Width: 640, Height: 360},
		{ItagNo: 140, AudioChannels: 2, Bitrate: 130000},
		{ItagNo: 251, AudioChannels: 2, Bitrate: 160000},
		{ItagNo: 137, Bitrate: 4000000, Width: 1920, Height: 1080},
	}

	f, err := bestAudio(formats)
	require.NoError(t, err)
	assert.Equal(t, 251, f.ItagNo)

	f, err = bestAudio(formats[:1])
	require.NoError(t, err)
	assert.Equal(t, 18, f.ItagNo, "muxed format when nothing else has audio")

	_, err = bestAudio(formats[3:])
	assert.ErrorIs(t, err, ErrNoAudioFormat)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.NotNil(t, c.HTTPClient)

	_, err = NewClient("socks5://127.0.0.1:1080")
	assert.NoError(t, err)
	_, err = NewClient("http://proxy.local:3128")
	assert.NoError(t, err)
	_, err = NewClient("gopher://x")
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, LinkName, NewLink(nil, nil).Name())
	assert.Equal(t, PipeName, NewPipe(nil, nil).Name())
}
