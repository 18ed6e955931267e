package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrCommandConflict = errors.New("command name or alias already registered")
	ErrEmptyName       = errors.New("command name is empty")
	ErrUnknownCommand  = errors.New("command is not registered")
)

// Registry holds commands and events. Names and aliases share one case-insensitive
// namespace and the first registration of a token wins.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	commands map[string]Command
	aliases  map[string]string
	events   []Event
}

func NewRegistry() *Registry {
	return &Registry{commands: map[string]Command{}, aliases: map[string]string{}}
}

func (x *Registry) Register(cmd Command) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.register(cmd)
}

func (x *Registry) register(cmd Command) error {
	meta := cmd.Meta()
	name := normalize(meta.Name)
	if name == "" {
		return ErrEmptyName
	}

	tokens := []string{name}
	for _, alias := range meta.Aliases {
		alias = normalize(alias)
		if alias == "" || contains(tokens, alias) {
			continue
		}
		tokens = append(tokens, alias)
	}

	for _, token := range tokens {
		if owner, taken := x.owner(token); taken {
			return fmt.Errorf("%w: %q is taken by %q", ErrCommandConflict, token, owner)
		}
	}

	x.commands[name] = cmd
	x.order = append(x.order, name)
	for _, alias := range tokens[1:] {
		x.aliases[alias] = name
	}
	return nil
}

func (x *Registry) owner(token string) (string, bool) {
	if _, ok := x.commands[token]; ok {
		return token, true
	}
	name, ok := x.aliases[token]
	return name, ok
}

func (x *Registry) Unregister(name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, err := x.unregister(normalize(name))
	return err
}

func (x *Registry) unregister(name string) (Command, error) {
	cmd, ok := x.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	delete(x.commands, name)
	for alias, target := range x.aliases {
		if target == name {
			delete(x.aliases, alias)
		}
	}
	for i, n := range x.order {
		if n == name {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return cmd, nil
}

// Replace swaps the command registered under cmd's name for cmd in one step. When
// the new descriptor conflicts with another command the old one is restored.
func (x *Registry) Replace(cmd Command) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	previous, err := x.unregister(normalize(cmd.Meta().Name))
	if err != nil {
		return err
	}
	if err := x.register(cmd); err != nil {
		if restore := x.register(previous); restore != nil {
			return errors.Join(err, restore)
		}
		return err
	}
	return nil
}

// Resolve finds a command by exact name first, then by alias.
func (x *Registry) Resolve(token string) (Command, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	token = normalize(token)
	if cmd, ok := x.commands[token]; ok {
		return cmd, true
	}
	if name, ok := x.aliases[token]; ok {
		return x.commands[name], true
	}
	return nil, false
}

// Lookup finds a command by its canonical name only.
func (x *Registry) Lookup(name string) (Command, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	cmd, ok := x.commands[normalize(name)]
	return cmd, ok
}

func (x *Registry) Commands() []Command {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Command, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.commands[name])
	}
	return out
}

// Visible is Commands without hidden ones.
func (x *Registry) Visible() []Command {
	var out []Command
	for _, cmd := range x.Commands() {
		if !cmd.Meta().Hidden() {
			out = append(out, cmd)
		}
	}
	return out
}

func (x *Registry) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

func (x *Registry) RegisterEvent(ev Event) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	name := normalize(ev.Meta().Name)
	if name == "" {
		return ErrEmptyName
	}
	for _, existing := range x.events {
		if normalize(existing.Meta().Name) == name {
			return fmt.Errorf("%w: event %q", ErrCommandConflict, name)
		}
	}
	x.events = append(x.events, ev)
	return nil
}

func (x *Registry) Events() []Event {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]Event(nil), x.events...)
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
