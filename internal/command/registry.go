package command

import (
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Registry maps command names to commands.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// Register wraps cmd in mws, outermost last, and stores it under its name.
func (r *Registry) Register(cmd Command, mws ...Middleware) {
	cmd = Apply(cmd, mws...)
	r.mu.Lock()
	r.cmds[cmd.Name()] = cmd
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// All returns the commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	list := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		list = append(list, cmd)
	}
	r.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// ForComponent finds the command owning a custom ID of the form "name" or
// "name:args".
func (r *Registry) ForComponent(customID string) (Command, bool) {
	name, _, _ := strings.Cut(customID, ":")
	return r.Get(name)
}

// Definitions collects the slash definitions of every registered command.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, cmd := range r.All() {
		sp, ok := cmd.(SlashProvider)
		if !ok {
			continue
		}
		def := sp.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}
