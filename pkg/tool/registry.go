package tool

import (
	"errors"
	"fmt"
	"sync"
)

// Common errors returned by the registry.
var (
	ErrUnknownTool   = errors.New("tool: unknown tool")
	ErrDuplicateTool = errors.New("tool: duplicate tool name")
)

// Identity is the slice of a persona the registry needs: which tool names
// it authorizes. Implemented by persona.Config.
type Identity interface {
	ToolAllowlist() []string
}

// Registry is the static catalog of every tool known to the system.
// Descriptors are registered once at startup; per-session tool sets are
// selections from the catalog, never mutations of it.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
	order []string // insertion order, keeps advertisement reproducible
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Descriptor),
	}
}

// Register adds a descriptor to the catalog.
// Returns ErrDuplicateTool if the name is already taken.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// MustRegister registers a batch of descriptors and panics on duplicates.
// Intended for startup wiring where a duplicate is a programming error.
func (r *Registry) MustRegister(descriptors ...Descriptor) {
	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the descriptor for a tool name.
// Returns ErrUnknownTool if absent.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return d, nil
}

// ForIdentity returns the descriptors a persona's allow-list authorizes,
// in catalog insertion order. Unknown names in the allow-list are skipped;
// the result is always a subset of the catalog.
func (r *Registry) ForIdentity(id Identity) []Descriptor {
	allowed := make(map[string]bool)
	for _, name := range id.ToolAllowlist() {
		allowed[name] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, name := range r.order {
		if allowed[name] {
			out = append(out, r.tools[name])
		}
	}
	return out
}

// Names returns all registered tool names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Declarations renders a batch of descriptors for model advertisement.
func Declarations(descriptors []Descriptor) []map[string]any {
	out := make([]map[string]any, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Declaration()
	}
	return out
}
