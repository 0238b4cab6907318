package scheduler

import (
	"context"

	"guild-jukebox/internal/music/track"
)

// Connector attaches to a voice channel. Implementations must be safe to call
// concurrently for different guilds.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (Session, error)
}

// Session is one live voice connection.
//
// Play starts streaming t and returns without waiting for it to end. Stop must
// not block on the stream; the scheduler calls it while holding guild state.
type Session interface {
	Play(ctx context.Context, t track.Track) error
	IsPlaying() bool
	Stop()
	Disconnect() error
}

// Finisher is implemented by sessions that can signal stream completion
// directly. The channel returned after Play closes when that stream ends.
// Sessions without it are polled through IsPlaying.
type Finisher interface {
	Finished() <-chan struct{}
}

// Liveness is implemented by sessions that can tell whether the underlying
// connection is still usable between tracks.
type Liveness interface {
	Connected() bool
}
