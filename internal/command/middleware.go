package command

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx any, next func(any) error) error
}

func (w *wrappedCommand) next(ctx any) error {
	if c, ok := ctx.(*ComponentContext); ok {
		if ch, ok := w.Command.(ComponentHandler); ok {
			return ch.Component(c)
		}
		return ErrNotSupported
	}
	return w.Command.Run(ctx)
}

func (w *wrappedCommand) Run(ctx any) error {
	return w.wrap(ctx, w.next)
}

func (w *wrappedCommand) Component(ctx *ComponentContext) error {
	return w.wrap(ctx, w.next)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// Apply wraps cmd so that the last middleware runs first.
func Apply(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx any, next func(any) error) error {
				if e := event(ctx); e != nil && e.GuildID == "" {
					return ErrGuildOnly
				}
				return next(ctx)
			},
		}
	}
}

// WithAdminCheck refuses commands that RequireAdmin unless the member can
// manage the guild.
func WithAdminCheck() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx any, next func(any) error) error {
				if !cmd.RequireAdmin() {
					return next(ctx)
				}
				e := event(ctx)
				if e == nil || !IsAdmin(e.Member) {
					return ErrAdminOnly
				}
				return next(ctx)
			},
		}
	}
}

// WithRecover turns a panic inside a handler into an error.
func WithRecover() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx any, next func(any) error) (err error) {
				defer func() {
					if r := recover(); r != nil {
						logger(ctx).Error("command panicked",
							zap.String("command", cmd.Name()),
							zap.Any("panic", r),
							zap.Stack("stack"))
						err = fmt.Errorf("command %s panicked: %v", cmd.Name(), r)
					}
				}()
				return next(ctx)
			},
		}
	}
}

func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx any, next func(any) error) error {
				start := time.Now()
				err := next(ctx)

				fields := []zap.Field{
					zap.String("command", cmd.Name()),
					zap.Duration("took", time.Since(start)),
				}
				if e := event(ctx); e != nil {
					fields = append(fields, zap.String("guild", e.GuildID))
					if u := Invoker(e); u != nil {
						fields = append(fields, zap.String("user", u.ID))
					}
					if e.Type == discordgo.InteractionMessageComponent {
						fields = append(fields, zap.String("custom_id", e.MessageComponentData().CustomID))
					}
				}
				if err != nil {
					logger(ctx).Warn("command failed", append(fields, zap.Error(err))...)
				} else {
					logger(ctx).Debug("command handled", fields...)
				}
				return err
			},
		}
	}
}
