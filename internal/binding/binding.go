// Package binding pairs a typed instance with the model name it mirrors and
// keeps the two in sync: incoming value trees overwrite the instance through
// Bind, local mutations flow back out through ToModel.
//
// A Binding provides no internal locking. Concurrent Bind calls against the
// same binding must be serialized by the caller; the sync dispatcher does
// this with one ordered queue per model name.
package binding

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/modelbind/internal/coerce"
	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/schema"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

// Observer is notified after a binding's instance was successfully
// overwritten. Observers run synchronously on the binding goroutine and must
// not block it indefinitely.
type Observer func(b *Binding)

// Binding is the live association between a model name and a typed instance.
// The instance is overwritten in place on every update; the binding itself is
// never destroyed, its lifetime follows the owning entity.
type Binding struct {
	name      string
	sh        shape.Shape
	ptr       reflect.Value // pointer to the owned instance
	live      bool
	defaults  map[string]value.Node
	observers []Observer
}

// Option configures a Binding at construction time.
type Option func(*Binding)

// WithDefaults supplies per-key fallback nodes. A record key covered by a
// default is optional: when the sync layer omits it, the default is coerced
// instead of failing with a missing-field error.
func WithDefaults(defaults map[string]value.Node) Option {
	return func(b *Binding) {
		b.defaults = defaults
	}
}

// New creates a binding around prototype, which must be a non-nil pointer to
// the target struct. The binding owns the pointed-to instance from here on.
func New(name string, prototype any, opts ...Option) (*Binding, error) {
	ptr := reflect.ValueOf(prototype)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return nil, fmt.Errorf("binding %q: prototype must be a non-nil pointer, got %T", name, prototype)
	}

	sh, err := schema.For(prototype)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", name, err)
	}

	b := &Binding{name: name, sh: sh, ptr: ptr}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns the model name this binding mirrors.
func (b *Binding) Name() string {
	return b.name
}

// Shape returns the binding's target shape.
func (b *Binding) Shape() shape.Shape {
	return b.sh
}

// Live reports whether the binding has been populated by at least one
// successful Bind.
func (b *Binding) Live() bool {
	return b.live
}

// Instance returns the owned typed instance as the pointer the binding was
// constructed with. Callers may mutate it between updates and publish the
// result with ToModel.
func (b *Binding) Instance() any {
	return b.ptr.Interface()
}

// OnUpdated registers an observer. Registration is expected during setup,
// before updates start flowing.
func (b *Binding) OnUpdated(fn Observer) {
	b.observers = append(b.observers, fn)
}

// Bind overwrites the instance from an incoming value tree. The replacement
// is built completely before it is swapped in: on any coercion failure the
// prior instance is left fully intact and no notification fires.
func (b *Binding) Bind(ctx context.Context, node value.Node) error {
	logger := ctxlog.FromContext(ctx).With("model", b.name)

	node = b.applyDefaults(node)
	if err := coerce.Coerce(ctx, b.sh, node, b.ptr.Interface()); err != nil {
		logger.Debug("Bind rejected by coercer.", "error", err)
		return fmt.Errorf("bind %q: %w", b.name, err)
	}
	b.live = true
	logger.Debug("Bound model update.", "observers", len(b.observers))

	for _, fn := range b.observers {
		fn(b)
	}
	return nil
}

// ToModel flattens the current instance back into the untyped value tree for
// the sync layer's write path.
func (b *Binding) ToModel(ctx context.Context) (value.Node, error) {
	node, err := coerce.Flatten(ctx, b.sh, b.ptr.Interface())
	if err != nil {
		return nil, fmt.Errorf("to model %q: %w", b.name, err)
	}
	return node, nil
}

// applyDefaults fills absent record keys from the default table. The incoming
// node is never mutated; a patched shallow copy is coerced instead.
func (b *Binding) applyDefaults(node value.Node) value.Node {
	if len(b.defaults) == 0 {
		return node
	}
	rec, ok := node.(value.Rec)
	if !ok {
		return node
	}

	missing := false
	for key := range b.defaults {
		if _, present := rec[key]; !present {
			missing = true
			break
		}
	}
	if !missing {
		return node
	}

	patched := make(value.Rec, len(rec)+len(b.defaults))
	for key, child := range rec {
		patched[key] = child
	}
	for key, child := range b.defaults {
		if _, present := patched[key]; !present {
			patched[key] = child
		}
	}
	return patched
}
