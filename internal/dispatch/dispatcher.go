// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dispatch runs fire-and-forget background tasks on a fixed pool of
// worker goroutines fed by a bounded queue.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/olegiv/ocms-builder/internal/model"
)

// TaskFunc is a unit of background work. It receives the dispatcher's context.
type TaskFunc func(ctx context.Context)

type task struct {
	name string
	run  TaskFunc
}

// Config holds dispatcher configuration.
type Config struct {
	Workers   int // Number of concurrent workers
	QueueSize int // Tasks waiting beyond this are refused
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:   2,
		QueueSize: 100,
	}
}

// Dispatcher executes queued tasks in the background.
type Dispatcher struct {
	logger  *slog.Logger
	queue   chan task
	workers int
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	stopped bool
}

// NewDispatcher creates a new dispatcher. It accepts no work until Start.
func NewDispatcher(logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:  logger,
		queue:   make(chan task, cfg.QueueSize),
		workers: cfg.Workers,
	}
}

// Start starts the worker goroutines. A stopped dispatcher cannot be restarted.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running || d.stopped {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting task dispatcher", "workers", d.workers, "queue_size", cap(d.queue))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop refuses new tasks, lets the workers drain the queue and waits for
// them to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.logger.Info("stopping task dispatcher")
	d.wg.Wait()
	d.logger.Info("task dispatcher stopped")
}

// Enqueue schedules fn without blocking. It returns model.ErrUnavailable
// when the dispatcher is not running or the queue is full.
func (d *Dispatcher) Enqueue(name string, fn TaskFunc) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		return fmt.Errorf("dispatching %s: dispatcher not running: %w", name, model.ErrUnavailable)
	}

	select {
	case d.queue <- task{name: name, run: fn}:
		d.logger.Debug("task queued", "task", name)
		return nil
	default:
		d.logger.Warn("task queue full", "task", name, "queue_size", cap(d.queue))
		return fmt.Errorf("dispatching %s: queue full: %w", name, model.ErrUnavailable)
	}
}

// Pending returns the number of queued tasks not yet picked up.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("task worker started", "worker_id", id)

	for t := range d.queue {
		d.execute(ctx, id, t)
	}
	d.logger.Debug("task worker stopping", "worker_id", id)
}

func (d *Dispatcher) execute(ctx context.Context, id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked",
				"worker_id", id,
				"task", t.name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	d.logger.Debug("task started", "worker_id", id, "task", t.name)
	t.run(ctx)
}
