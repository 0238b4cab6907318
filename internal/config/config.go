// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"guild-jukebox/internal/voice/cipher"
)

type Config struct {
	DiscordToken   string   `env:"DISCORD_TOKEN,required,notEmpty"`
	GuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	SkipThreshold        float64       `env:"SKIP_THRESHOLD" envDefault:"0.5"`
	AdminInstantSkip     bool          `env:"ADMIN_INSTANT_SKIP" envDefault:"true"`
	SkipWhenEmpty        bool          `env:"SKIP_WHEN_EMPTY" envDefault:"true"`
	SelectionTimeout     time.Duration `env:"SELECTION_TIMEOUT" envDefault:"30s"`
	SelectionCandidates  int           `env:"SELECTION_CANDIDATES" envDefault:"5"`
	PlaybackPollInterval time.Duration `env:"PLAYBACK_POLL_INTERVAL" envDefault:"1s"`

	ResolverRPS  float64 `env:"RESOLVER_RPS" envDefault:"5"`
	YouTubeProxy string  `env:"YOUTUBE_PROXY"`
	FFmpegPath   string  `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	VoiceCipherModes []string `env:"VOICE_CIPHER_MODES" envSeparator:","`

	HTTPEnabled bool   `env:"HTTP_ENABLED" envDefault:"true"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8787"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath  string `env:"LOG_PATH" envDefault:"logs/jukebox.log"`
}

// Load reads .env when present, then the process environment. dotenvMissing
// reports that no .env file was found, which is not an error.
func Load() (cfg *Config, dotenvMissing bool, err error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, fmt.Errorf("read .env: %w", err)
		}
		dotenvMissing = true
	}
	cfg, err = parse(env.Options{})
	return cfg, dotenvMissing, err
}

// FromMap parses settings from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SkipThreshold <= 0 || c.SkipThreshold > 1 {
		errs = append(errs, fmt.Errorf("SKIP_THRESHOLD must be in (0, 1], got %v", c.SkipThreshold))
	}
	if c.SelectionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SELECTION_TIMEOUT must be positive, got %v", c.SelectionTimeout))
	}
	if c.PlaybackPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("PLAYBACK_POLL_INTERVAL must be positive, got %v", c.PlaybackPollInterval))
	}
	if c.SelectionCandidates < 1 || c.SelectionCandidates > 5 {
		errs = append(errs, fmt.Errorf("SELECTION_CANDIDATES must be between 1 and 5, got %d", c.SelectionCandidates))
	}
	if c.ResolverRPS <= 0 {
		errs = append(errs, fmt.Errorf("RESOLVER_RPS must be positive, got %v", c.ResolverRPS))
	}
	if err := cipher.Validate(c.VoiceCipherModes); err != nil {
		errs = append(errs, fmt.Errorf("VOICE_CIPHER_MODES: %w", err))
	}
	if c.HTTPEnabled && c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is empty while HTTP_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// IsBlacklisted reports whether the bot must ignore guildID.
func (c *Config) IsBlacklisted(guildID string) bool {
	for _, id := range c.GuildBlacklist {
		if id == guildID {
			return true
		}
	}
	return false
}
