package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Runner is a long-lived background loop.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Group runs named background loops until their context ends.
type Group struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewGroup creates an empty group.
func NewGroup(logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{logger: logger}
}

// Go starts r in the background.
func (g *Group) Go(ctx context.Context, name string, r Runner) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.logger.Info("background worker started", zap.String("worker", name))
		if err := r.Run(ctx); err != nil && ctx.Err() == nil {
			g.logger.Error("background worker stopped", zap.String("worker", name), zap.Error(err))
			return
		}
		g.logger.Info("background worker stopped", zap.String("worker", name))
	}()
}

// Wait blocks until every started loop has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
