// This file cross-checks manifest declarations against registered Go types,
// so schema drift between the sync layer and the client binary surfaces at
// startup instead of as per-update coercion failures.

package registry

import (
	"context"
	"fmt"

	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/shape"
)

// Validate checks every manifest declaration against the registered model
// types. It fails when a declaration names an unregistered model, when a
// registered type is not a record, when a declared key has no tagged Go
// field, or when a declared field shape disagrees with the derived one.
//
// Models registered without a declaration are allowed; the manifest is a
// safety net, not a gate.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, decl := range r.decls {
		m, ok := r.models[name]
		if !ok {
			return fmt.Errorf("registry: manifest %s declares model %q but no type is registered for it", decl.SourceFile, name)
		}

		obj, ok := m.Shape.(*shape.Object)
		if !ok {
			return fmt.Errorf("registry: model %q is declared with fields but its type %s is not a record", name, m.Type.String())
		}

		for _, f := range decl.Fields {
			derived, ok := obj.FieldByKey(f.Key)
			if !ok {
				return fmt.Errorf("registry: model %q declares key %q but type %s has no field tagged with it", name, f.Key, m.Type.String())
			}
			if f.Shape == nil {
				continue // declared as 'any', unchecked
			}
			if !f.Shape.Equal(derived.Shape) {
				return fmt.Errorf("registry: model %q key %q is declared as %s but the Go field %s derives as %s",
					name, f.Key, f.Shape.String(), derived.Name, derived.Shape.String())
			}
		}
		logger.Debug("Model declaration validated.", "model", name, "fields", len(decl.Fields))
	}

	logger.Debug("Registry validation passed.", "models", len(r.models), "declarations", len(r.decls))
	return nil
}
