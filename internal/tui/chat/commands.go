package chat

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Command represents a slash command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// CommandRegistry resolves slash commands and their aliases.
type CommandRegistry struct {
	commands map[string]*Command
	aliases  map[string]string
	names    []string
}

// NewCommandRegistry creates a registry with the chat commands.
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}

	r.Register(&Command{Name: "help", Aliases: []string{"h", "?"}, Description: "Show available commands", Usage: "/help [command]"})
	r.Register(&Command{Name: "new", Aliases: []string{"n"}, Description: "Start a new session", Usage: "/new"})
	r.Register(&Command{Name: "clear", Aliases: []string{"cls"}, Description: "Clear the screen, keeping the session", Usage: "/clear"})
	r.Register(&Command{Name: "session", Aliases: []string{"s"}, Description: "Show the current session id", Usage: "/session"})
	r.Register(&Command{Name: "voice", Aliases: []string{"v"}, Description: "Toggle single best answer mode", Usage: "/voice [on|off]"})
	r.Register(&Command{Name: "copy", Aliases: []string{"cp"}, Description: "Copy the last answers to the clipboard", Usage: "/copy"})
	r.Register(&Command{Name: "copyall", Aliases: []string{"cpa"}, Description: "Copy the whole conversation to the clipboard", Usage: "/copyall"})
	r.Register(&Command{Name: "quit", Aliases: []string{"q", "exit"}, Description: "Leave the chat", Usage: "/quit"})

	return r
}

// Register adds a command to the registry.
func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// Parse splits input into a command and its arguments. ok is false for
// regular messages; a known prefix with an unknown name returns a nil
// command and ok true.
func (r *CommandRegistry) Parse(input string) (cmd *Command, args []string, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, nil, false
	}
	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return nil, nil, false
	}
	return r.Get(strings.ToLower(parts[0])), parts[1:], true
}

// Get returns a command by name or alias.
func (r *CommandRegistry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if real, ok := r.aliases[name]; ok {
		return r.commands[real]
	}
	return nil
}

// Suggest returns command names fuzzily matching partial input.
func (r *CommandRegistry) Suggest(partial string) []string {
	partial = strings.ToLower(strings.TrimPrefix(partial, "/"))
	if partial == "" {
		out := append([]string(nil), r.names...)
		sort.Strings(out)
		return out
	}

	candidates := append([]string(nil), r.names...)
	for alias := range r.aliases {
		candidates = append(candidates, alias)
	}
	sort.Strings(candidates)

	seen := make(map[string]bool)
	var out []string
	for _, m := range fuzzy.Find(partial, candidates) {
		name := m.Str
		if real, ok := r.aliases[name]; ok {
			name = real
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Help returns help text for one command or all of them.
func (r *CommandRegistry) Help(name string) string {
	if name != "" {
		cmd := r.Get(strings.TrimPrefix(name, "/"))
		if cmd == nil {
			return "Unknown command: " + name
		}
		return formatCommandHelp(cmd)
	}

	names := append([]string(nil), r.names...)
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, n := range names {
		cmd := r.commands[n]
		sb.WriteString("\n  /" + n)
		if len(cmd.Aliases) > 0 {
			sb.WriteString(" (" + strings.Join(cmd.Aliases, ", ") + ")")
		}
		sb.WriteString("  " + cmd.Description)
	}
	return sb.String()
}

func formatCommandHelp(cmd *Command) string {
	var sb strings.Builder
	sb.WriteString(cmd.Name)
	if len(cmd.Aliases) > 0 {
		sb.WriteString(" (aliases: " + strings.Join(cmd.Aliases, ", ") + ")")
	}
	sb.WriteString("\n\n" + cmd.Description + "\n\nUsage: " + cmd.Usage)
	return sb.String()
}
