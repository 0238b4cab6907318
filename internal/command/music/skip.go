package music

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/jukebox"
	"guild-jukebox/internal/music/vote"
)

type SkipCommand struct {
	Jukebox Jukebox
	Voice   Voice
}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Vote to skip the current song" }
func (c *SkipCommand) Group() string       { return group }
func (c *SkipCommand) RequireAdmin() bool  { return false }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *SkipCommand) Run(ctx any) error {
	sc, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}
	return c.vote(sc.Session, sc.Event)
}

// Component handles the skip button under now-playing messages.
func (c *SkipCommand) Component(ctx *command.ComponentContext) error {
	return c.vote(ctx.Session, ctx.Event)
}

func (c *SkipCommand) vote(s *discordgo.Session, e *discordgo.InteractionCreate) error {
	res, err := c.skip(context.Background(), e)
	if err != nil {
		return command.RespondEmbedEphemeral(s, e, failureEmbed(err))
	}
	if res.Outcome == vote.AlreadyVoted {
		return command.RespondEphemeral(s, e, skipMessage(res))
	}
	return command.RespondEmbed(s, e, messageEmbed("⏭️ Skip", skipMessage(res)))
}

func (c *SkipCommand) skip(ctx context.Context, e *discordgo.InteractionCreate) (vote.Result, error) {
	userID := invokerID(e)
	return c.Jukebox.Skip(ctx, jukebox.SkipRequest{
		GuildID:   e.GuildID,
		UserID:    userID,
		ChannelID: c.Voice.UserVoiceChannel(e.GuildID, userID),
		IsAdmin:   command.IsAdmin(e.Member),
	})
}

func skipMessage(res vote.Result) string {
	switch res.Outcome {
	case vote.InstantSkip:
		return "Skipped."
	case vote.NoOccupants:
		return "Nobody is listening in the channel."
	case vote.AlreadyVoted:
		return fmt.Sprintf("You already voted. %d vote(s) so far.", res.SoFar)
	default:
		return fmt.Sprintf("Vote counted: %d/%d. %d more needed.", res.SoFar, res.Required, res.Needed)
	}
}
