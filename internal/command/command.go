// Package command holds the slash command model, its registry and the
// middlewares wrapped around every command.
package command

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var (
	ErrGuildOnly    = errors.New("this command only works in a server")
	ErrAdminOnly    = errors.New("this command is for server admins")
	ErrNotSupported = errors.New("interaction not supported")
)

type Command interface {
	Name() string
	Description() string
	Group() string
	RequireAdmin() bool
	Run(ctx any) error
}

// SlashProvider is implemented by commands registered with Discord as
// slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentHandler receives button clicks whose custom ID starts with the
// command name.
type ComponentHandler interface {
	Component(ctx *ComponentContext) error
}

type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Log     *zap.Logger
}

type ComponentContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Log     *zap.Logger
}

// Invoker returns the user behind an interaction, in a guild or a DM.
func Invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i == nil || i.Interaction == nil {
		return nil
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// IsAdmin reports whether the member may manage the guild. Interaction
// members carry their resolved permissions.
func IsAdmin(m *discordgo.Member) bool {
	if m == nil {
		return false
	}
	return m.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0
}

func event(ctx any) *discordgo.InteractionCreate {
	switch v := ctx.(type) {
	case *SlashContext:
		return v.Event
	case *ComponentContext:
		return v.Event
	}
	return nil
}

func logger(ctx any) *zap.Logger {
	var log *zap.Logger
	switch v := ctx.(type) {
	case *SlashContext:
		log = v.Log
	case *ComponentContext:
		log = v.Log
	}
	if log == nil {
		return zap.NewNop()
	}
	return log
}
