package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
)

type StopCommand struct {
	Jukebox Jukebox
}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback, clear the queue and leave" }
func (c *StopCommand) Group() string       { return group }
func (c *StopCommand) RequireAdmin() bool  { return true }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	perms := int64(discordgo.PermissionManageGuild)
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: &perms,
	}
}

func (c *StopCommand) Run(ctx any) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	s, e := sc.Session, sc.Event

	removed, err := c.Jukebox.Stop(e.GuildID)
	if err != nil {
		return command.RespondEmbedEphemeral(s, e, failureEmbed(err))
	}
	return command.RespondEmbed(s, e, messageEmbed("⏹️ Stopped", stopMessage(removed)))
}

func stopMessage(removed int) string {
	if removed == 0 {
		return "Playback stopped."
	}
	return fmt.Sprintf("Playback stopped, %d queued song(s) cleared.", removed)
}
