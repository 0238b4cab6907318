package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T) *discordgo.State {
	t.Helper()
	st := discordgo.NewState()
	st.User = &discordgo.User{ID: "bot"}
	require.NoError(t, st.GuildAdd(&discordgo.Guild{
		ID: "g1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "g1", UserID: "bot", ChannelID: "vc1"},
			{GuildID: "g1", UserID: "u1", ChannelID: "vc1"},
			{GuildID: "g1", UserID: "u2", ChannelID: "vc1"},
			{GuildID: "g1", UserID: "u3", ChannelID: "vc2"},
		},
	}))
	return st
}

func TestVoiceStatesCount(t *testing.T) {
	vs := VoiceStates{State: newTestState(t)}

	assert.Equal(t, 2, vs.Count("g1", "vc1"), "bot is not a listener")
	assert.Equal(t, 1, vs.Count("g1", "vc2"))
	assert.Zero(t, vs.Count("g1", "vc3"))
	assert.Zero(t, vs.Count("g1", ""))
	assert.Zero(t, vs.Count("unknown", "vc1"))
	assert.Zero(t, VoiceStates{}.Count("g1", "vc1"))
}

func TestVoiceStatesUserChannel(t *testing.T) {
	vs := VoiceStates{State: newTestState(t)}

	assert.Equal(t, "vc2", vs.UserVoiceChannel("g1", "u3"))
	assert.Empty(t, vs.UserVoiceChannel("g1", "nobody"))
	assert.Empty(t, VoiceStates{}.UserVoiceChannel("g1", "u3"))
}
