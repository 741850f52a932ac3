package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/modelbind/internal/value"
)

// Table is the thread-safe name-to-binding index the sync dispatcher routes
// updates through. Registration happens during setup; lookups dominate after
// that, so a RWMutex-guarded map is enough.
type Table struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
}

// NewTable creates an empty binding table.
func NewTable() *Table {
	return &Table{bindings: make(map[string]*Binding)}
}

// Register adds a binding under its model name. Registering the same name
// twice is a setup bug and is rejected.
func (t *Table) Register(b *Binding) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.bindings[b.Name()]; exists {
		return fmt.Errorf("binding %q is already registered", b.Name())
	}
	t.bindings[b.Name()] = b
	return nil
}

// Get looks up a binding by model name.
func (t *Table) Get(name string) (*Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.bindings[name]
	return b, ok
}

// Names returns the registered model names.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.bindings))
	for name := range t.bindings {
		names = append(names, name)
	}
	return names
}

// Bind routes an update to the named binding. Updates for unregistered names
// are not an error at this level; the dispatcher logs and drops them.
func (t *Table) Bind(ctx context.Context, name string, node value.Node) error {
	b, ok := t.Get(name)
	if !ok {
		return fmt.Errorf("no binding registered for model %q", name)
	}
	return b.Bind(ctx, node)
}
