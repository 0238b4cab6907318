package discord

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/stream"
	"guild-jukebox/internal/music/track"
	"guild-jukebox/internal/voice/cipher"
)

// disconnectWait bounds how long Disconnect waits for the sender to stop.
const disconnectWait = 2 * time.Second

// Link is one joined voice channel as seen by a transport.
type Link interface {
	Speaking(on bool) error
	Opus() chan<- []byte
	Ready() bool
	Disconnect() error
}

// Transport joins voice channels. Modes lists the encryption modes the
// transport can speak; Join receives the negotiated one.
type Transport interface {
	Modes() []string
	Join(ctx context.Context, guildID, channelID, mode string) (Link, error)
}

// PCMSource opens a track as 48 kHz stereo s16le PCM.
type PCMSource func(ctx context.Context, t track.Track) (io.ReadCloser, error)

// FromOpener adapts a stream opener, reopening streams that end early.
func FromOpener(o *stream.Opener) PCMSource {
	return func(ctx context.Context, t track.Track) (io.ReadCloser, error) {
		rs, err := o.OpenRecovering(ctx, t)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
}

// Connector implements scheduler.Connector on top of a Transport.
type Connector struct {
	transport  Transport
	pcm        PCMSource
	modes      []string
	newEncoder func() (stream.Encoder, error)
	log        *zap.Logger
}

// NewConnector negotiates voice encryption between modes, in preference
// order, and what transport supports. An empty modes list means every mode
// the cipher package implements.
func NewConnector(transport Transport, pcm PCMSource, modes []string, log *zap.Logger) *Connector {
	if len(modes) == 0 {
		modes = cipher.Preferred()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		transport:  transport,
		pcm:        pcm,
		modes:      modes,
		newEncoder: stream.NewOpusEncoder,
		log:        log.With(zap.String("component", "voice")),
	}
}

func (c *Connector) Connect(ctx context.Context, guildID, channelID string) (scheduler.Session, error) {
	mode, err := cipher.Negotiate(c.modes, c.transport.Modes())
	if err != nil {
		return nil, err
	}
	link, err := c.transport.Join(ctx, guildID, channelID, mode)
	if err != nil {
		return nil, err
	}
	c.log.Info("joined voice",
		zap.String("guild", guildID),
		zap.String("channel", channelID),
		zap.String("mode", mode))
	return &voiceSession{
		guildID:    guildID,
		link:       link,
		pcm:        c.pcm,
		newEncoder: c.newEncoder,
		log:        c.log.With(zap.String("guild", guildID)),
	}, nil
}

// voiceSession streams one track at a time into a Link.
type voiceSession struct {
	guildID    string
	link       Link
	pcm        PCMSource
	newEncoder func() (stream.Encoder, error)
	log        *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	playing bool
}

func (v *voiceSession) Play(ctx context.Context, t track.Track) error {
	enc, err := v.newEncoder()
	if err != nil {
		return err
	}

	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	v.mu.Lock()
	v.cancel = cancel
	v.done = done
	v.playing = true
	v.mu.Unlock()

	r, err := v.pcm(pctx, t)
	if err != nil {
		cancel()
		v.finish(done)
		return fmt.Errorf("open %q: %w", t.DisplayTitle(), err)
	}

	go v.send(pctx, r, enc, done, t)
	return nil
}

func (v *voiceSession) send(ctx context.Context, r io.ReadCloser, enc stream.Encoder, done chan struct{}, t track.Track) {
	defer v.finish(done)
	defer r.Close()

	if err := v.link.Speaking(true); err != nil {
		v.log.Warn("speaking on failed", zap.Error(err))
	}
	if err := stream.SendOpus(ctx, r, enc, v.link.Opus()); err != nil {
		v.log.Warn("stream ended with error", zap.String("track", t.DisplayTitle()), zap.Error(err))
	}
	if err := v.link.Speaking(false); err != nil {
		v.log.Debug("speaking off failed", zap.Error(err))
	}
}

func (v *voiceSession) finish(done chan struct{}) {
	v.mu.Lock()
	if v.done == done {
		v.playing = false
	}
	v.mu.Unlock()
	close(done)
}

func (v *voiceSession) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Finished closes when the current stream ends.
func (v *voiceSession) Finished() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return v.done
}

func (v *voiceSession) Stop() {
	v.mu.Lock()
	cancel := v.cancel
	v.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (v *voiceSession) Connected() bool {
	return v.link.Ready()
}

func (v *voiceSession) Disconnect() error {
	v.Stop()
	v.mu.Lock()
	done := v.done
	v.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-time.After(disconnectWait):
			v.log.Warn("sender did not stop before disconnect")
		}
	}
	return v.link.Disconnect()
}

// GatewayTransport joins voice through the discordgo gateway session, which
// seals packets itself with xsalsa20_poly1305 only.
type GatewayTransport struct {
	Session *discordgo.Session
}

func (g GatewayTransport) Modes() []string {
	return []string{cipher.ModeXSalsa20Poly1305}
}

func (g GatewayTransport) Join(_ context.Context, guildID, channelID, mode string) (Link, error) {
	if !slices.Contains(g.Modes(), mode) {
		return nil, fmt.Errorf("gateway voice cannot use %q: %w", mode, cipher.ErrNoCommonMode)
	}
	vc, err := g.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return gatewayLink{vc: vc}, nil
}

type gatewayLink struct {
	vc *discordgo.VoiceConnection
}

func (l gatewayLink) Speaking(on bool) error { return l.vc.Speaking(on) }
func (l gatewayLink) Opus() chan<- []byte    { return l.vc.OpusSend }
func (l gatewayLink) Disconnect() error      { return l.vc.Disconnect() }

func (l gatewayLink) Ready() bool {
	l.vc.RLock()
	defer l.vc.RUnlock()
	return l.vc.Ready
}
