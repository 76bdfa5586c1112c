// Package parsers defines the parser plugin contract and the registry the
// worker pool drives. A parser either extracts events from a file entry or
// rejects it with ErrWrongFormat; rejection is the normal outcome for most
// parser/file pairings and is never reported as a failure.
package parsers

import (
	"context"
	"sync"

	"github.com/5l1v3r1/plaso/errors"
	"github.com/5l1v3r1/plaso/event"
	"github.com/5l1v3r1/plaso/knowledge"
	"github.com/5l1v3r1/plaso/vfs"
)

// Parser extracts timeline events from one file entry.
type Parser interface {
	// Name returns the registry name of the parser.
	Name() string

	// Parse extracts events from the entry. A parser that does not
	// recognize the format returns ErrWrongFormat; any other error means
	// the parser recognized the file but failed partway. Events without a
	// resolvable timestamp are dropped here, never returned.
	Parse(ctx context.Context, kb *knowledge.Base, entry vfs.FileEntry) ([]*event.Event, error)
}

// Registry holds the registered parsers in registration order. Parsers are
// registered explicitly at startup; there is no init-time magic.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register adds a parser. Registering the same name twice is a
// configuration error.
func (r *Registry) Register(p Parser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "empty parser name")
	}
	if _, exists := r.byName[name]; exists {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", name)
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns a parser by name.
func (r *Registry) Get(name string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// All returns the parsers in registration order.
func (r *Registry) All() []Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Parser, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.byName[name])
	}
	return result
}

// Names returns the registered parser names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}
