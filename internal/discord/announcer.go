package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/command/music"
	"guild-jukebox/internal/music/scheduler"
	"guild-jukebox/internal/music/track"
)

// messenger is the part of *discordgo.Session the announcer writes with.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type posted struct {
	channelID string
	messageID string
}

// Announcer posts playback events to the text channel each guild last used
// a music command in.
type Announcer struct {
	out        messenger
	channels   *xsync.MapOf[string, string]
	nowPlaying *xsync.MapOf[string, posted]
	log        *zap.Logger
}

func NewAnnouncer(out messenger, log *zap.Logger) *Announcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Announcer{
		out:        out,
		channels:   xsync.NewMapOf[string, string](),
		nowPlaying: xsync.NewMapOf[string, posted](),
		log:        log.With(zap.String("component", "announcer")),
	}
}

// Bind makes channelID the announcement channel of guildID.
func (a *Announcer) Bind(guildID, channelID string) {
	if channelID != "" {
		a.channels.Store(guildID, channelID)
	}
}

// Run handles events until ctx is done or events is closed.
func (a *Announcer) Run(ctx context.Context, events <-chan scheduler.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.handle(e)
		}
	}
}

func (a *Announcer) handle(e scheduler.Event) {
	channelID, ok := a.channels.Load(e.GuildID)
	if !ok {
		return
	}

	switch e.Kind {
	case scheduler.EventTrackStarted:
		msg, err := a.out.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{nowPlayingEmbed(e.Track)},
			Components: music.Controls(),
		})
		if err != nil {
			a.log.Warn("now playing announcement failed", zap.String("guild", e.GuildID), zap.Error(err))
			return
		}
		a.nowPlaying.Store(e.GuildID, posted{channelID: channelID, messageID: msg.ID})

	case scheduler.EventTrackEnded:
		a.retireControls(e.GuildID)

	case scheduler.EventPlaybackFailed:
		desc := "Playback failed."
		if e.Track.ID != "" {
			desc = fmt.Sprintf("Could not play %s, moving on.", music.TrackLine(e.Track))
		}
		a.send(e.GuildID, channelID, &discordgo.MessageEmbed{Title: "⚠️ Playback", Description: desc, Color: command.EmbedColor})

	case scheduler.EventQueueDrained:
		a.retireControls(e.GuildID)
		a.send(e.GuildID, channelID, &discordgo.MessageEmbed{
			Description: "📭 Queue finished, leaving the voice channel.",
			Color:       command.EmbedColor,
		})
	}
}

// retireControls strips the buttons from the last now-playing message.
func (a *Announcer) retireControls(guildID string) {
	p, ok := a.nowPlaying.LoadAndDelete(guildID)
	if !ok {
		return
	}
	components := []discordgo.MessageComponent{}
	if _, err := a.out.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         p.messageID,
		Channel:    p.channelID,
		Components: &components,
	}); err != nil {
		a.log.Debug("removing controls failed", zap.String("guild", guildID), zap.Error(err))
	}
}

func (a *Announcer) send(guildID, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := a.out.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		a.log.Warn("announcement failed", zap.String("guild", guildID), zap.Error(err))
	}
}

func nowPlayingEmbed(t track.Track) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🎶 Now playing",
		Description: music.TrackLine(t),
		Color:       command.EmbedColor,
	}
	if t.RequestedBy != "" {
		embed.Fields = []*discordgo.MessageEmbedField{{Name: "Requested by", Value: "<@" + t.RequestedBy + ">", Inline: true}}
	}
	if t.ThumbnailURI != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ThumbnailURI}
	}
	return embed
}
