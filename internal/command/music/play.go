package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/jukebox"
)

// playTimeout covers resolution plus a candidate pick.
const playTimeout = 2 * time.Minute

type PlayCommand struct {
	Jukebox Jukebox
	Voice   Voice
}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Queue a song by link or search" }
func (c *PlayCommand) Group() string       { return group }
func (c *PlayCommand) RequireAdmin() bool  { return false }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "YouTube link, radio stream URL or search words",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx any) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	s, e := sc.Session, sc.Event

	var query string
	for _, opt := range e.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}

	if err := command.Defer(s, e, false); err != nil {
		return fmt.Errorf("defer play response: %w", err)
	}

	userID := invokerID(e)
	c.Voice.BindTextChannel(e.GuildID, e.ChannelID)

	pctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()
	added, err := c.Jukebox.Play(pctx, jukebox.PlayRequest{
		GuildID:   e.GuildID,
		UserID:    userID,
		ChannelID: c.Voice.UserVoiceChannel(e.GuildID, userID),
		Query:     query,
	}, c.Voice.Prompter(s, e))

	embed, components := playReply(added, err)
	if err != nil && added.Track.ID == "" {
		sc.Log.Debug("play refused", zap.String("guild", e.GuildID), zap.String("query", query), zap.Error(err))
	}
	_, editErr := s.InteractionResponseEdit(e.Interaction, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	return editErr
}

// playReply builds the answer to /play. A connect failure still reports the
// queued track since it stays in the queue.
func playReply(added jukebox.Added, err error) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	if err != nil && added.Track.ID == "" {
		return failureEmbed(err), []discordgo.MessageComponent{}
	}

	embed := messageEmbed("🎶 Added to queue", TrackLine(added.Track))
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Position", Value: fmt.Sprintf("#%d", added.Position), Inline: true},
		{Name: "Requested by", Value: "<@" + added.Track.RequestedBy + ">", Inline: true},
	}
	if added.Track.ThumbnailURI != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: added.Track.ThumbnailURI}
	}
	if errors.Is(err, jukebox.ErrConnectFailed) {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Queued, but I could not join your voice channel yet."}
	}
	return embed, removeButton(added.Track)
}

// Component handles clicks on search candidates.
func (c *PlayCommand) Component(ctx *command.ComponentContext) error {
	s, e := ctx.Session, ctx.Event
	err := c.pick(invokerID(e), e.MessageComponentData().CustomID)
	if err != nil {
		return command.RespondEmbedEphemeral(s, e, failureEmbed(err))
	}
	// The waiting /play call edits the prompt once it sees the pick.
	return command.DeferUpdate(s, e)
}

func (c *PlayCommand) pick(userID, customID string) error {
	h, idx, ok := parseSelectID(customID)
	if !ok {
		return fmt.Errorf("%w: %s", command.ErrNotSupported, strings.TrimSpace(customID))
	}
	return c.Jukebox.ResolveSelection(h, userID, idx)
}
