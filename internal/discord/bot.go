// Package discord connects the jukebox to the Discord gateway: interactions,
// voice, presence and announcements.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/config"
	"guild-jukebox/internal/music/jukebox"
)

// commandSyncRate paces per-guild command registration.
const commandSyncRate = rate.Limit(40)

type Bot struct {
	dg        *discordgo.Session
	cfg       *config.Config
	registry  *command.Registry
	announcer *Announcer
	states    VoiceStates
	synced    *xsync.MapOf[string, struct{}]
	syncLimit *rate.Limiter
	log       *zap.Logger
}

// New prepares a gateway session. Commands are added with Register before
// Open.
func New(cfg *config.Config, log *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	dg.StateEnabled = true

	log = log.With(zap.String("component", "discord"))
	b := &Bot{
		dg:        dg,
		cfg:       cfg,
		registry:  command.NewRegistry(),
		announcer: NewAnnouncer(dg, log),
		states:    VoiceStates{State: dg.State},
		synced:    xsync.NewMapOf[string, struct{}](),
		syncLimit: rate.NewLimiter(commandSyncRate, 1),
		log:       log,
	}

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onInteractionCreate)
	return b, nil
}

func (b *Bot) Session() *discordgo.Session { return b.dg }

// Voice is the presence lookup jukebox skip votes sample.
func (b *Bot) Voice() VoiceStates { return b.states }

func (b *Bot) Announcer() *Announcer { return b.announcer }

// Register adds commands wrapped in the standard middleware chain.
func (b *Bot) Register(cmds ...command.Command) {
	for _, c := range cmds {
		b.registry.Register(c,
			command.WithGuildOnly(),
			command.WithAdminCheck(),
			command.WithCommandLogger(),
			command.WithRecover(),
		)
	}
}

func (b *Bot) Open() error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.dg.Close()
}

// UserVoiceChannel implements music.Voice.
func (b *Bot) UserVoiceChannel(guildID, userID string) string {
	return b.states.UserVoiceChannel(guildID, userID)
}

// Prompter implements music.Voice.
func (b *Bot) Prompter(s *discordgo.Session, i *discordgo.InteractionCreate) jukebox.Prompter {
	return newPrompter(s, i, b.log)
}

// BindTextChannel implements music.Voice.
func (b *Bot) BindTextChannel(guildID, channelID string) {
	b.announcer.Bind(guildID, channelID)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("discord bot is running",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.cfg.IsBlacklisted(g.ID) {
		b.log.Info("leaving blacklisted guild", zap.String("guild", g.ID), zap.String("name", g.Name))
		if err := s.GuildLeave(g.ID); err != nil {
			b.log.Error("failed to leave guild", zap.String("guild", g.ID), zap.Error(err))
		}
		return
	}
	if _, loaded := b.synced.LoadOrStore(g.ID, struct{}{}); loaded {
		return
	}
	go func() {
		if err := b.syncCommands(g.ID); err != nil {
			b.synced.Delete(g.ID)
			b.log.Error("failed to register commands", zap.String("guild", g.ID), zap.Error(err))
		}
	}()
}

// syncCommands replaces the guild's slash commands with the registered set.
func (b *Bot) syncCommands(guildID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := b.syncLimit.Wait(ctx); err != nil {
		return err
	}

	appID := b.dg.State.User.ID
	defs := b.registry.Definitions()
	if _, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, defs); err != nil {
		return err
	}
	b.log.Info("commands registered", zap.String("guild", guildID), zap.Int("count", len(defs)))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID != "" && b.cfg.IsBlacklisted(i.GuildID) {
		return
	}

	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := b.registry.Get(name)
		if !ok {
			b.log.Warn("unknown command", zap.String("command", name))
			return
		}
		err = cmd.Run(&command.SlashContext{Session: s, Event: i, Log: b.log})

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		cmd, ok := b.registry.ForComponent(customID)
		if !ok {
			b.log.Warn("no handler for component", zap.String("custom_id", customID))
			return
		}
		ch, ok := cmd.(command.ComponentHandler)
		if !ok {
			return
		}
		err = ch.Component(&command.ComponentContext{Session: s, Event: i, Log: b.log})

	default:
		return
	}

	if err != nil {
		b.reportError(s, i, err)
	}
}

// reportError answers the interaction, or follows up when it was already
// acknowledged.
func (b *Bot) reportError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	embed := command.ErrorEmbed(err)
	if rerr := command.RespondEmbedEphemeral(s, i, embed); rerr == nil {
		return
	}
	if _, ferr := command.FollowupEmbed(s, i, embed, true); ferr != nil {
		b.log.Warn("could not report command error", zap.Error(err), zap.NamedError("report", ferr))
	}
}
