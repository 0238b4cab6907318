package discord

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/music/parsers"
	"guild-jukebox/internal/music/stream"
	"guild-jukebox/internal/music/track"
)

type fakeLink struct {
	opus         chan []byte
	ready        atomic.Bool
	speaking     atomic.Int32
	disconnected atomic.Bool
}

func newFakeLink() *fakeLink {
	l := &fakeLink{opus: make(chan []byte, 1024)}
	l.ready.Store(true)
	return l
}

func (l *fakeLink) Speaking(on bool) error {
	if on {
		l.speaking.Add(1)
	}
	return nil
}
func (l *fakeLink) Opus() chan<- []byte { return l.opus }
func (l *fakeLink) Ready() bool         { return l.ready.Load() }
func (l *fakeLink) Disconnect() error {
	l.disconnected.Store(true)
	return nil
}

type fakeTransport struct {
	modes []string
	link  *fakeLink
	err   error

	mu     sync.Mutex
	joined []string
}

func (t *fakeTransport) Modes() []string { return t.modes }

func (t *fakeTransport) Join(_ context.Context, guildID, channelID, mode string) (Link, error) {
	if t.err != nil {
		return nil, t.err
	}
	t.mu.Lock()
	t.joined = append(t.joined, guildID+"/"+channelID+"/"+mode)
	t.mu.Unlock()
	return t.link, nil
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	return []byte{byte(len(pcm) % 256)}, nil
}

func newFakeEncoder() (stream.Encoder, error) { return fakeEncoder{}, nil }

// pcmFrames returns a source yielding n full frames per track.
func pcmFrames(n int) PCMSource {
	return func(context.Context, track.Track) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(make([]byte, n*parsers.FrameSize*parsers.Channels*2))), nil
	}
}

// endlessPCM never ends until closed or its context is done.
func endlessPCM(ctx context.Context, _ track.Track) (io.ReadCloser, error) {
	return &endless{ctx: ctx}, nil
}

type endless struct{ ctx context.Context }

func (e *endless) Read(p []byte) (int, error) {
	if e.ctx.Err() != nil {
		return 0, io.EOF
	}
	clear(p)
	return len(p), nil
}
func (e *endless) Close() error { return nil }

func failingPCM(context.Context, track.Track) (io.ReadCloser, error) {
	return nil, errors.New("no such video")
}

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

type fakeMessenger struct {
	mu    sync.Mutex
	sent  []sentMessage
	edits []*discordgo.MessageEdit
	fail  bool
}

func (f *fakeMessenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("missing access")
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: "m" + string(rune('0'+len(f.sent))), ChannelID: channelID}, nil
}

func (f *fakeMessenger) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID}, nil
}
