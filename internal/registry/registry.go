// Package registry holds the process-wide table of known model types: the Go
// type registered for each model name, the shape derived from it, and the
// externally declared schema loaded from HCL manifests. The registry is
// populated and validated once at startup, then sealed; afterwards it is
// read-only and safe for concurrent use.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vk/modelbind/internal/binding"
	"github.com/vk/modelbind/internal/schema"
	"github.com/vk/modelbind/internal/shape"
	"github.com/vk/modelbind/internal/value"
)

// Model is one registered model type.
type Model struct {
	Name  string
	Type  reflect.Type
	Shape shape.Shape
}

// FieldDecl is one field of a manifest-declared model schema. A nil Shape
// means the manifest typed the field as `any` and it is not checked against
// the Go type. A non-nil Default makes the field's key optional on incoming
// records.
type FieldDecl struct {
	Key     string
	Shape   shape.Shape
	Default value.Node
}

// Declaration is the manifest-declared schema of one model.
type Declaration struct {
	Name        string
	Description string
	Fields      []*FieldDecl
	SourceFile  string
}

// Registry maps model names to their registered types and declarations.
type Registry struct {
	mu     sync.Mutex
	sealed bool

	models map[string]*Model
	decls  map[string]*Declaration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models: make(map[string]*Model),
		decls:  make(map[string]*Declaration),
	}
}

// Register associates a model name with a Go struct type, given as a pointer
// prototype. The type's shape is derived immediately so registration fails
// fast on untaggable types.
func (r *Registry) Register(name string, prototype any) error {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("registry: model %q prototype must be a struct pointer, got %T", name, prototype)
	}
	sh, err := schema.Derive(t.Elem())
	if err != nil {
		return fmt.Errorf("registry: model %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry: cannot register model %q after seal", name)
	}
	if _, exists := r.models[name]; exists {
		return fmt.Errorf("registry: model %q is already registered", name)
	}
	r.models[name] = &Model{Name: name, Type: t.Elem(), Shape: sh}
	return nil
}

// Model looks up a registered model by name.
func (r *Registry) Model(name string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[name]
	return m, ok
}

// Declaration looks up a manifest declaration by model name.
func (r *Registry) Declaration(name string) (*Declaration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.decls[name]
	return d, ok
}

// Names returns the registered model names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}

// Seal freezes the registry. Registration and manifest loading fail after
// this point, which makes lock-free reads of the maps safe.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Defaults collects the manifest-declared default nodes for a model, keyed by
// external field key. Returns nil when the model has no declaration or no
// defaults.
func (r *Registry) Defaults(name string) map[string]value.Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	decl, ok := r.decls[name]
	if !ok {
		return nil
	}
	var defaults map[string]value.Node
	for _, f := range decl.Fields {
		if f.Default == nil {
			continue
		}
		if defaults == nil {
			defaults = make(map[string]value.Node)
		}
		defaults[f.Key] = f.Default
	}
	return defaults
}

// NewBinding constructs a binding for a registered model around a fresh
// instance of its Go type, wired with the model's manifest defaults.
func (r *Registry) NewBinding(name string) (*binding.Binding, error) {
	m, ok := r.Model(name)
	if !ok {
		return nil, fmt.Errorf("registry: model %q is not registered", name)
	}
	instance := reflect.New(m.Type).Interface()
	return binding.New(name, instance, binding.WithDefaults(r.Defaults(name)))
}
