// Package app wires the pieces together: logger, registry, manifests,
// binding table and sync client, with a lifecycle driven by a single context.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/modelbind/internal/binding"
	"github.com/vk/modelbind/internal/config"
	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/registry"
)

// Module registers one or more model types with the registry. Deployments
// implement this per game system and hand the modules to New.
type Module interface {
	Register(r *registry.Registry) error
}

// App encapsulates the application's dependencies, configuration and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *config.Config
	registry *registry.Registry
	table    *binding.Table

	httpServer *http.Server
}

// New builds a fully initialized App: logger from config, model modules
// registered, manifests loaded and validated, registry sealed, and a binding
// created for every registered model.
func New(outW io.Writer, cfg *config.Config, modules ...Module) (*App, error) {
	logger := newLogger(cfg.Log.Level, cfg.Log.Format, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	for _, mod := range modules {
		if err := mod.Register(reg); err != nil {
			return nil, fmt.Errorf("failed to register models: %w", err)
		}
	}
	logger.Debug("Model modules registered.", "modules", len(modules), "models", len(reg.Names()))

	if cfg.ManifestsPath != "" {
		if err := reg.LoadManifests(ctx, cfg.ManifestsPath); err != nil {
			return nil, fmt.Errorf("failed to load model manifests: %w", err)
		}
	}
	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	reg.Seal()

	table := binding.NewTable()
	for _, name := range reg.Names() {
		b, err := reg.NewBinding(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create binding for model %q: %w", name, err)
		}
		if err := table.Register(b); err != nil {
			return nil, err
		}
	}
	logger.Debug("Binding table populated.", "bindings", len(table.Names()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		table:    table,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Table returns the application's binding table. This is primarily for
// testing and for host-layer observers.
func (a *App) Table() *binding.Table {
	return a.table
}
