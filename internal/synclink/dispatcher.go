package synclink

import (
	"context"
	"sync"

	"github.com/vk/modelbind/internal/binding"
	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/internal/value"
)

// queueDepth bounds each per-model queue. A full queue applies backpressure
// to the event handler rather than dropping updates.
const queueDepth = 64

type update struct {
	ctx  context.Context
	node value.Node
}

// dispatcher serializes updates per model name. A Binding provides no
// internal locking, so each binding gets exactly one worker goroutine and an
// ordered queue; updates for different models still run concurrently.
type dispatcher struct {
	table *binding.Table

	mu      sync.Mutex
	stopped bool
	queues  map[string]chan update
	senders sync.WaitGroup
	workers sync.WaitGroup
}

func newDispatcher(table *binding.Table) *dispatcher {
	return &dispatcher{
		table:  table,
		queues: make(map[string]chan update),
	}
}

// enqueue hands an update to the model's worker, starting the worker on first
// use. Blocks when the queue is full.
//
// The sender is registered under the same lock as the stopped check, so stop
// can wait for every in-flight send before it closes a queue. A sender parked
// on a full queue always completes: workers keep draining until close.
func (d *dispatcher) enqueue(ctx context.Context, name string, node value.Node) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.senders.Add(1)
	queue, ok := d.queues[name]
	if !ok {
		queue = make(chan update, queueDepth)
		d.queues[name] = queue
		d.workers.Add(1)
		go d.worker(name, queue)
	}
	d.mu.Unlock()

	queue <- update{ctx: ctx, node: node}
	d.senders.Done()
}

// worker drains one model's queue in arrival order.
func (d *dispatcher) worker(name string, queue chan update) {
	defer d.workers.Done()

	for u := range queue {
		logger := ctxlog.FromContext(u.ctx).With("model", name)
		if err := d.table.Bind(u.ctx, name, u.node); err != nil {
			// Coercion failures are surfaced and the prior state kept; the
			// sync layer re-delivers, so no retry happens here.
			logger.Warn("Update rejected", "error", err)
			continue
		}
		logger.Debug("Update applied")
	}
}

// stop refuses new enqueues, waits for in-flight sends to land, then closes
// the queues and waits for the workers to drain them.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.senders.Wait()

	d.mu.Lock()
	for _, queue := range d.queues {
		close(queue)
	}
	d.mu.Unlock()

	d.workers.Wait()
}
