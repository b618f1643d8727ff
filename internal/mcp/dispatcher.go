package mcp

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// Dispatcher serializes tool calls from every transport onto the one
// browser. A caller that gives up while queued gets an Error outcome and
// never touches the page.
type Dispatcher struct {
	registry *tools.Registry
	env      *tools.Env
	sem      *semaphore.Weighted
	metrics  *Metrics
	logger   *zap.Logger
}

// NewDispatcher wires a registry to an environment.
func NewDispatcher(registry *tools.Registry, env *tools.Env, metrics *Metrics, logger *zap.Logger) *Dispatcher {
	if metrics == nil {
		metrics = NewMetrics("linkmcp")
	}
	return &Dispatcher{
		registry: registry,
		env:      env,
		sem:      semaphore.NewWeighted(1),
		metrics:  metrics,
		logger:   logger.Named("dispatcher"),
	}
}

// Tools lists the available tools.
func (d *Dispatcher) Tools() []tools.Tool { return d.registry.Tools() }

// Has reports whether name is a registered tool.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.registry.Lookup(name)
	return ok
}

// Metrics returns the collectors calls are recorded in.
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// Call runs one tool after every earlier call has finished.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) tools.Outcome {
	d.metrics.waiting.Inc()
	err := d.sem.Acquire(ctx, 1)
	d.metrics.waiting.Dec()
	if err != nil {
		d.logger.Info("Tool call abandoned while queued.", zap.String("tool", name), zap.Error(err))
		return tools.Errorf("%s cancelled before it started: %v", name, err)
	}
	defer d.sem.Release(1)

	start := time.Now()
	out := d.registry.Dispatch(ctx, d.env, name, args)
	d.metrics.observeCall(name, out, time.Since(start))
	return out
}
