// Package music exposes the jukebox through slash commands and buttons.
package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/jukebox"
	"guild-jukebox/internal/music/selection"
	"guild-jukebox/internal/music/track"
	"guild-jukebox/internal/music/vote"
)

const group = "music"

// Jukebox is the part of *jukebox.Jukebox the commands drive.
type Jukebox interface {
	Play(ctx context.Context, req jukebox.PlayRequest, p jukebox.Prompter) (jukebox.Added, error)
	ResolveSelection(h selection.Handle, userID string, index int) error
	Skip(ctx context.Context, req jukebox.SkipRequest) (vote.Result, error)
	ListQueue(guildID string) jukebox.QueueView
	RemoveTrack(guildID, userID, trackID string) error
	RemoveAt(guildID, userID string, position int) (track.Track, error)
	Stop(guildID string) (int, error)
}

// Voice is what the bot knows about voice channels and where to talk.
type Voice interface {
	UserVoiceChannel(guildID, userID string) string
	Prompter(s *discordgo.Session, i *discordgo.InteractionCreate) jukebox.Prompter
	BindTextChannel(guildID, channelID string)
}

// Commands returns every music command sharing jb and v.
func Commands(jb Jukebox, v Voice) []command.Command {
	return []command.Command{
		&PlayCommand{Jukebox: jb, Voice: v},
		&SkipCommand{Jukebox: jb, Voice: v},
		&QueueCommand{Jukebox: jb},
		&RemoveCommand{Jukebox: jb},
		&StopCommand{Jukebox: jb},
	}
}

// SelectID is the custom ID of the button picking candidate index of h.
func SelectID(h selection.Handle, index int) string {
	return fmt.Sprintf("play:%s:%d", h, index)
}

func parseSelectID(customID string) (selection.Handle, int, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != "play" || parts[1] == "" {
		return "", 0, false
	}
	idx, err := strconv.Atoi(parts[2])
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return selection.Handle(parts[1]), idx, true
}

// Controls are the buttons attached to now-playing messages.
func Controls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "⏭️ Skip", Style: discordgo.SecondaryButton, CustomID: "skip"},
			discordgo.Button{Label: "📜 Queue", Style: discordgo.SecondaryButton, CustomID: "queue"},
		}},
	}
}

func removeButton(t track.Track) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "↩️ Remove", Style: discordgo.SecondaryButton, CustomID: "remove:" + t.ID},
		}},
	}
}

// TrackLine renders a track as a markdown link when it has a web URI.
func TrackLine(t track.Track) string {
	title := t.DisplayTitle()
	if strings.HasPrefix(t.SourceURI, "http") && t.Title != "" {
		title = fmt.Sprintf("[%s](%s)", t.Title, t.SourceURI)
	}
	return fmt.Sprintf("%s `%s`", title, t.FormatDuration())
}

// userMessage turns a jukebox error into text fit for the requester.
func userMessage(err error) string {
	switch {
	case jukebox.IsUserInput(err):
		return err.Error()
	case errors.Is(err, jukebox.ErrSelectionTimedOut):
		return "No pick was made in time."
	case errors.Is(err, jukebox.ErrNotAuthorized):
		return "That is not yours to change."
	case errors.Is(err, selection.ErrOutOfRange):
		return "That choice is not on the list."
	case errors.Is(err, command.ErrNotSupported):
		return "That button no longer works."
	case errors.Is(err, jukebox.ErrNotFound):
		return "No such track in the queue."
	case errors.Is(err, jukebox.ErrNothingPlaying):
		return "Nothing is playing."
	case errors.Is(err, jukebox.ErrConnectFailed):
		return "I could not join your voice channel."
	case errors.Is(err, jukebox.ErrResolution):
		return "Something went wrong looking that up. Try again later."
	case errors.Is(err, command.ErrAdminOnly), errors.Is(err, command.ErrGuildOnly):
		return err.Error()
	default:
		return "Something went wrong."
	}
}

func messageEmbed(title, desc string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: desc, Color: command.EmbedColor}
}

func failureEmbed(err error) *discordgo.MessageEmbed {
	return messageEmbed("⚠️ Error", userMessage(err))
}

func invokerID(i *discordgo.InteractionCreate) string {
	if u := command.Invoker(i); u != nil {
		return u.ID
	}
	return ""
}
