package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/command/music"
	"guild-jukebox/internal/music/jukebox"
	"guild-jukebox/internal/music/selection"
	"guild-jukebox/internal/music/track"
)

// interactionPrompter shows search candidates in the deferred /play reply.
type interactionPrompter struct {
	s   *discordgo.Session
	i   *discordgo.InteractionCreate
	log *zap.Logger
}

func newPrompter(s *discordgo.Session, i *discordgo.InteractionCreate, log *zap.Logger) jukebox.Prompter {
	return &interactionPrompter{s: s, i: i, log: log}
}

func (p *interactionPrompter) Present(_ context.Context, h selection.Handle, candidates []track.Track) error {
	embeds := []*discordgo.MessageEmbed{selectionEmbed(candidates)}
	components := selectionButtons(h, candidates)
	_, err := p.s.InteractionResponseEdit(p.i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	return err
}

// Close takes the buttons away so late clicks cannot land.
func (p *interactionPrompter) Close(h selection.Handle, chosen *track.Track) {
	text := "⌛ Selection expired."
	if chosen != nil {
		text = "✅ " + chosen.DisplayTitle()
	}
	embeds := []*discordgo.MessageEmbed{{Description: text, Color: command.EmbedColor}}
	components := []discordgo.MessageComponent{}
	if _, err := p.s.InteractionResponseEdit(p.i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}); err != nil {
		p.log.Debug("closing selection prompt failed", zap.String("handle", string(h)), zap.Error(err))
	}
}

func selectionEmbed(candidates []track.Track) *discordgo.MessageEmbed {
	var b strings.Builder
	for i, t := range candidates {
		fmt.Fprintf(&b, "**%d.** %s\n", i+1, music.TrackLine(t))
	}
	return &discordgo.MessageEmbed{
		Title:       "🔎 Pick a track",
		Description: strings.TrimRight(b.String(), "\n"),
		Color:       command.EmbedColor,
	}
}

func selectionButtons(h selection.Handle, candidates []track.Track) []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for i := range candidates {
		row.Components = append(row.Components, discordgo.Button{
			Label:    fmt.Sprint(i + 1),
			Style:    discordgo.PrimaryButton,
			CustomID: music.SelectID(h, i),
		})
	}
	return []discordgo.MessageComponent{row}
}
