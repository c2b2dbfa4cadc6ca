package stats

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Poller invokes refresh on a fixed interval. It bounds staleness when a change event
// is missed; it does not replace the change feed.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   *zap.Logger
}

// NewPoller creates a poller. interval defaults to 30s.
func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{interval: interval, refresh: refresh, logger: logger}
}

// Interval returns the configured tick.
func (p *Poller) Interval() time.Duration { return p.interval }

// Run refreshes once immediately, then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("stats poll failed", zap.Error(err))
	}
}
