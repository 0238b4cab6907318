package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{"DISCORD_TOKEN": "secret"})
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.DiscordToken)
	assert.Equal(t, 0.5, cfg.SkipThreshold)
	assert.True(t, cfg.AdminInstantSkip)
	assert.True(t, cfg.SkipWhenEmpty)
	assert.Equal(t, 30*time.Second, cfg.SelectionTimeout)
	assert.Equal(t, 5, cfg.SelectionCandidates)
	assert.Equal(t, time.Second, cfg.PlaybackPollInterval)
	assert.Equal(t, ":8787", cfg.HTTPAddr)
	assert.True(t, cfg.HTTPEnabled)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Empty(t, cfg.GuildBlacklist)
}

func TestFromMap_Overrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DISCORD_TOKEN":           "secret",
		"DISCORD_GUILD_BLACKLIST": "111,222",
		"SKIP_THRESHOLD":          "0.75",
		"ADMIN_INSTANT_SKIP":      "false",
		"SELECTION_TIMEOUT":       "45s",
		"SELECTION_CANDIDATES":    "3",
		"VOICE_CIPHER_MODES":      "aead_xchacha20_poly1305_rtpsize,xsalsa20_poly1305",
		"HTTP_ENABLED":            "false",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"111", "222"}, cfg.GuildBlacklist)
	assert.True(t, cfg.IsBlacklisted("222"))
	assert.False(t, cfg.IsBlacklisted("333"))
	assert.Equal(t, 0.75, cfg.SkipThreshold)
	assert.False(t, cfg.AdminInstantSkip)
	assert.Equal(t, 45*time.Second, cfg.SelectionTimeout)
	assert.Equal(t, 3, cfg.SelectionCandidates)
	assert.Len(t, cfg.VoiceCipherModes, 2)
	assert.False(t, cfg.HTTPEnabled)
}

func TestFromMap_MissingToken(t *testing.T) {
	_, err := FromMap(map[string]string{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"zero threshold", map[string]string{"SKIP_THRESHOLD": "0"}},
		{"threshold above one", map[string]string{"SKIP_THRESHOLD": "1.5"}},
		{"negative timeout", map[string]string{"SELECTION_TIMEOUT": "-1s"}},
		{"zero poll", map[string]string{"PLAYBACK_POLL_INTERVAL": "0s"}},
		{"too many candidates", map[string]string{"SELECTION_CANDIDATES": "6"}},
		{"no candidates", map[string]string{"SELECTION_CANDIDATES": "0"}},
		{"zero rps", map[string]string{"RESOLVER_RPS": "0"}},
		{"unknown cipher mode", map[string]string{"VOICE_CIPHER_MODES": "xsalsa20_poly1305,rot13"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vars["DISCORD_TOKEN"] = "secret"
			_, err := FromMap(tt.vars)
			assert.Error(t, err)
		})
	}

	cfg, err := FromMap(map[string]string{"DISCORD_TOKEN": "secret", "SKIP_THRESHOLD": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.SkipThreshold)
}
