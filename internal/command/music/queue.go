package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/jukebox"
)

// maxListed keeps the queue embed under Discord's description limit.
const maxListed = 15

type QueueCommand struct {
	Jukebox Jukebox
}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the current song and what comes next" }
func (c *QueueCommand) Group() string       { return group }
func (c *QueueCommand) RequireAdmin() bool  { return false }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *QueueCommand) Run(ctx any) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	return command.RespondEmbed(sc.Session, sc.Event, queueEmbed(c.Jukebox.ListQueue(sc.Event.GuildID)))
}

func (c *QueueCommand) Component(ctx *command.ComponentContext) error {
	return command.RespondEmbedEphemeral(ctx.Session, ctx.Event, queueEmbed(c.Jukebox.ListQueue(ctx.Event.GuildID)))
}

func queueEmbed(view jukebox.QueueView) *discordgo.MessageEmbed {
	var b strings.Builder
	if view.Current != nil {
		fmt.Fprintf(&b, "**Now playing:** %s\n\n", TrackLine(*view.Current))
	}
	if len(view.Upcoming) == 0 {
		b.WriteString("The queue is empty.")
	}
	for i, t := range view.Upcoming {
		if i == maxListed {
			fmt.Fprintf(&b, "…and %d more", len(view.Upcoming)-maxListed)
			break
		}
		fmt.Fprintf(&b, "`%d.` %s <@%s>\n", i+1, TrackLine(t), t.RequestedBy)
	}

	embed := messageEmbed("📜 Queue", strings.TrimRight(b.String(), "\n"))
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Status: " + view.Status.String()}
	return embed
}
