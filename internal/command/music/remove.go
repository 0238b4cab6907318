package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
)

type RemoveCommand struct {
	Jukebox Jukebox
}

func (c *RemoveCommand) Name() string        { return "remove" }
func (c *RemoveCommand) Description() string { return "Remove one of your songs from the queue" }
func (c *RemoveCommand) Group() string       { return group }
func (c *RemoveCommand) RequireAdmin() bool  { return false }

func (c *RemoveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minPos := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "position",
				Description: "Position shown by /queue",
				Required:    true,
				MinValue:    &minPos,
			},
		},
	}
}

func (c *RemoveCommand) Run(ctx any) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	s, e := sc.Session, sc.Event

	var pos int
	for _, opt := range e.ApplicationCommandData().Options {
		if opt.Name == "position" {
			pos = int(opt.IntValue())
		}
	}

	t, err := c.Jukebox.RemoveAt(e.GuildID, invokerID(e), pos)
	if err != nil {
		return command.RespondEmbedEphemeral(s, e, failureEmbed(err))
	}
	return command.RespondEmbed(s, e, messageEmbed("🗑️ Removed", TrackLine(t)))
}

// Component handles the remove button on "added to queue" replies.
func (c *RemoveCommand) Component(ctx *command.ComponentContext) error {
	s, e := ctx.Session, ctx.Event
	if err := c.removeByID(e.GuildID, invokerID(e), e.MessageComponentData().CustomID); err != nil {
		return command.RespondEmbedEphemeral(s, e, failureEmbed(err))
	}
	return command.RespondEphemeral(s, e, "Removed from the queue.")
}

func (c *RemoveCommand) removeByID(guildID, userID, customID string) error {
	id, ok := strings.CutPrefix(customID, "remove:")
	if !ok || id == "" {
		return fmt.Errorf("%w: %s", command.ErrNotSupported, customID)
	}
	return c.Jukebox.RemoveTrack(guildID, userID, id)
}
