// Package synclink is the client side of the sync/indexing boundary. It
// holds the socket.io connection to the sync service, feeds incoming model
// update events through the wire codec into the binding table, and publishes
// local mutations back out.
//
// Delivery contract: the sync service guarantees per-model emission order,
// and the dispatcher preserves it by running one ordered queue per model
// name. Updates are at-least-once; re-binding identical data is observably a
// no-op.
package synclink

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/modelbind/internal/binding"
	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/wire"
)

const (
	updateEvent = "model_update"
	writeEvent  = "model_write"

	connectTimeout = 15 * time.Second
)

// Config describes the sync service endpoint.
type Config struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Client is a connected sync-layer client bound to a binding table.
type Client struct {
	io         *socket.Socket
	table      *binding.Table
	dispatcher *dispatcher
}

// Connect establishes the socket.io connection and returns a client ready to
// Run. It blocks until the connection is confirmed, the context is cancelled,
// or the connect timeout expires.
func Connect(ctx context.Context, cfg Config, table *binding.Table) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL)
	logger.Info("Connecting to sync service...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sync URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to sync service", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("connect_error: %v", errs[0])
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("sync connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while connecting to sync service")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to sync service")
	}

	return &Client{
		io:         io,
		table:      table,
		dispatcher: newDispatcher(table),
	}, nil
}

// Run subscribes to model update events and blocks until the context is
// cancelled, then drains the dispatcher and disconnects.
func (c *Client) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	err := c.io.On(types.EventName(updateEvent), func(args ...any) {
		c.handleUpdate(ctx, args...)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", updateEvent, err)
	}
	logger.Info("Subscribed to model updates.", "event", updateEvent, "models", c.table.Names())

	<-ctx.Done()

	logger.Debug("Shutting down sync client...")
	// Disconnect before draining so no handler can enqueue into a closing
	// queue.
	c.io.Disconnect()
	c.dispatcher.stop()
	logger.Info("Sync client stopped.")
	return nil
}

// handleUpdate runs on the socket library's event goroutine; it only decodes
// and enqueues so a slow binding never stalls the socket.
func (c *Client) handleUpdate(ctx context.Context, args ...any) {
	logger := ctxlog.FromContext(ctx)

	if len(args) < 2 {
		logger.Warn("Dropping malformed update event", "args", len(args))
		return
	}
	name, ok := args[0].(string)
	if !ok {
		logger.Warn("Dropping update event with non-string model name", "got", fmt.Sprintf("%T", args[0]))
		return
	}

	node, err := wire.FromNative(args[1])
	if err != nil {
		logger.Warn("Dropping undecodable update event", "model", name, "error", err)
		return
	}

	c.dispatcher.enqueue(ctx, name, node)
}

// Publish flattens the named binding's current instance and emits it on the
// write path.
func (c *Client) Publish(ctx context.Context, name string) error {
	b, ok := c.table.Get(name)
	if !ok {
		return fmt.Errorf("no binding registered for model %q", name)
	}
	node, err := b.ToModel(ctx)
	if err != nil {
		return err
	}
	native, err := wire.ToNative(node)
	if err != nil {
		return err
	}
	if err := c.io.Emit(writeEvent, name, native); err != nil {
		return fmt.Errorf("failed to emit %s for model %q: %w", writeEvent, name, err)
	}
	return nil
}
