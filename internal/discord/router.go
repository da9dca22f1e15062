package discord

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc handles an interaction routed by [CommandRouter].
type HandlerFunc func(s Session, i *discordgo.InteractionCreate)

type commandEntry struct {
	command *discordgo.ApplicationCommand
	handler HandlerFunc
}

// CommandRouter dispatches Discord interactions to registered handlers.
//
// Slash commands are keyed "command", "command/subcommand" or
// "command/group/subcommand". Buttons and modals are keyed by custom_id,
// either exactly or by a registered prefix for ids with dynamic suffixes.
type CommandRouter struct {
	mu              sync.RWMutex
	commands        map[string]commandEntry
	components      map[string]HandlerFunc
	componentPrefix map[string]HandlerFunc
	modals          map[string]HandlerFunc
	modalPrefix     map[string]HandlerFunc
}

// NewCommandRouter creates an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands:        make(map[string]commandEntry),
		components:      make(map[string]HandlerFunc),
		componentPrefix: make(map[string]HandlerFunc),
		modals:          make(map[string]HandlerFunc),
		modalPrefix:     make(map[string]HandlerFunc),
	}
}

// RegisterCommand registers a handler together with the top-level command
// definition sent to Discord. Several keys may share one definition.
func (r *CommandRouter) RegisterCommand(key string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key] = commandEntry{command: cmd, handler: handler}
}

// RegisterHandler registers a handler for a command key whose definition is
// registered elsewhere.
func (r *CommandRouter) RegisterHandler(key string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key] = commandEntry{handler: handler}
}

// RegisterComponent registers a handler for a button custom_id.
func (r *CommandRouter) RegisterComponent(customID string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[customID] = handler
}

// RegisterComponentPrefix registers a handler for every button whose
// custom_id starts with prefix.
func (r *CommandRouter) RegisterComponentPrefix(prefix string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.componentPrefix[prefix] = handler
}

// RegisterModal registers a handler for a modal custom_id.
func (r *CommandRouter) RegisterModal(customID string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modals[customID] = handler
}

// RegisterModalPrefix registers a handler for every modal whose custom_id
// starts with prefix.
func (r *CommandRouter) RegisterModalPrefix(prefix string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modalPrefix[prefix] = handler
}

// ApplicationCommands returns the deduplicated top-level command definitions.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var cmds []*discordgo.ApplicationCommand
	for _, entry := range r.commands {
		if entry.command != nil && !seen[entry.command.Name] {
			seen[entry.command.Name] = true
			cmds = append(cmds, entry.command)
		}
	}
	return cmds
}

// Handle dispatches an interaction to the matching handler.
func (r *CommandRouter) Handle(s Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleApplicationCommand(s, i)
	case discordgo.InteractionMessageComponent:
		r.dispatch(s, i, "component", i.MessageComponentData().CustomID, r.components, r.componentPrefix)
	case discordgo.InteractionModalSubmit:
		r.dispatch(s, i, "modal", i.ModalSubmitData().CustomID, r.modals, r.modalPrefix)
	default:
		slog.Warn("discord: unhandled interaction type", "type", i.Type)
	}
}

// CommandKey builds the router key of an application command interaction.
func CommandKey(data discordgo.ApplicationCommandInteractionData) string {
	key := data.Name
	opts := data.Options
	for len(opts) > 0 {
		opt := opts[0]
		if opt.Type != discordgo.ApplicationCommandOptionSubCommandGroup && opt.Type != discordgo.ApplicationCommandOptionSubCommand {
			break
		}
		key += "/" + opt.Name
		opts = opt.Options
	}
	return key
}

func (r *CommandRouter) handleApplicationCommand(s Session, i *discordgo.InteractionCreate) {
	key := CommandKey(i.ApplicationCommandData())

	r.mu.RLock()
	entry, ok := r.commands[key]
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown command", "key", key)
		RespondEphemeral(s, i, "Unknown command.")
		return
	}
	entry.handler(s, i)
}

func (r *CommandRouter) dispatch(s Session, i *discordgo.InteractionCreate, kind, customID string, exact, prefixes map[string]HandlerFunc) {
	r.mu.RLock()
	handler, ok := exact[customID]
	if !ok {
		for prefix, h := range prefixes {
			if strings.HasPrefix(customID, prefix) {
				handler, ok = h, true
				break
			}
		}
	}
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown "+kind, "custom_id", customID)
		RespondEphemeral(s, i, "Unknown "+kind+".")
		return
	}
	handler(s, i)
}
