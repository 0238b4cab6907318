package discord

import (
	"github.com/bwmarrin/discordgo"
)

// VoiceStates answers voice presence questions from the gateway cache.
type VoiceStates struct {
	State *discordgo.State
}

func (v VoiceStates) botID() string {
	if v.State == nil || v.State.User == nil {
		return ""
	}
	return v.State.User.ID
}

// Count returns how many users other than the bot sit in channelID.
func (v VoiceStates) Count(guildID, channelID string) int {
	if v.State == nil || channelID == "" {
		return 0
	}
	g, err := v.State.Guild(guildID)
	if err != nil {
		return 0
	}

	v.State.RLock()
	defer v.State.RUnlock()
	bot := v.botID()
	n := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID == channelID && vs.UserID != bot {
			n++
		}
	}
	return n
}

// UserVoiceChannel returns the channel userID is connected to, or "".
func (v VoiceStates) UserVoiceChannel(guildID, userID string) string {
	if v.State == nil {
		return ""
	}
	vs, err := v.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
