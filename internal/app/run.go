package app

import (
	"context"
	"fmt"

	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/synclink"
)

// Run starts the healthcheck server and the sync client and blocks until the
// context is cancelled. Without a sync block in the config the app is
// considered misconfigured: a binding layer with nothing to bind to.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	if a.config.Sync == nil {
		return fmt.Errorf("no sync service configured")
	}

	client, err := synclink.Connect(ctx, synclink.Config{
		URL:                a.config.Sync.URL,
		Namespace:          a.config.Sync.Namespace,
		InsecureSkipVerify: a.config.Sync.InsecureSkipVerify,
	}, a.table)
	if err != nil {
		return err
	}

	logger.Info("Model binding running.", "models", a.table.Names())
	return client.Run(ctx)
}
