package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PGListener bridges Postgres NOTIFY payloads (see migrations/0002_change_notify.sql)
// into a Publisher. Events committed while no listener is connected are lost, so after
// every reconnect, and every time this instance takes the lock over, it asks the
// publisher to resync its subscribers.
type PGListener struct {
	pool      *pgxpool.Pool
	channel   string
	publisher Publisher
	lock      Lock
	logger    *zap.Logger

	// connect runs one LISTEN session and calls onConnected once it is established.
	connect func(ctx context.Context, onConnected func()) error

	minBackoff time.Duration
	maxBackoff time.Duration
}

// Lock restricts listening to a single instance when the publisher is shared.
type Lock interface {
	// Acquire blocks until the lock is held or ctx ends. The returned context is cancelled
	// when the lock is lost.
	Acquire(ctx context.Context) (context.Context, error)
	Release(ctx context.Context)
}

// NewPGListener builds a listener. lock may be nil for single-instance deployments.
func NewPGListener(pool *pgxpool.Pool, channel string, publisher Publisher, lock Lock, logger *zap.Logger) *PGListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &PGListener{
		pool:       pool,
		channel:    channel,
		publisher:  publisher,
		lock:       lock,
		logger:     logger,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
	if pool != nil {
		l.connect = l.listen
	}
	return l
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
func (l *PGListener) Run(ctx context.Context) error {
	if l.connect == nil {
		l.logger.Warn("no postgres pool; change listener disabled")
		return nil
	}

	backoff := l.minBackoff
	connectedBefore := false

	for {
		if ctx.Err() != nil {
			return nil
		}

		listenCtx := ctx
		if l.lock != nil {
			held, err := l.lock.Acquire(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.logger.Error("change listener lock failed", zap.Error(err))
				if !sleepCtx(ctx, backoff) {
					return nil
				}
				continue
			}
			listenCtx = held
		}

		err := l.connect(listenCtx, func() {
			backoff = l.minBackoff
			// Another instance may have held the lock before this one, and whatever was
			// committed between its last notification and now reached nobody.
			if connectedBefore || l.lock != nil {
				l.resync(ctx)
			}
			connectedBefore = true
		})
		if l.lock != nil {
			l.lock.Release(context.Background())
		}
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Error("change listener disconnected",
			zap.String("channel", l.channel),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if !sleepCtx(ctx, backoff) {
			return nil
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

func (l *PGListener) listen(ctx context.Context, onConnected func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer func() {
		// A LISTENing connection must not go back to the pool.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("change listener connected", zap.String("channel", l.channel))
	onConnected()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := Decode([]byte(n.Payload))
		if err != nil {
			l.logger.Warn("dropping malformed notification", zap.Error(err))
			continue
		}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			l.logger.Error("publish change event failed",
				zap.String("table", ev.Table),
				zap.String("type", string(ev.Type)),
				zap.Error(err))
		}
	}
}

func (l *PGListener) resync(ctx context.Context) {
	r, ok := l.publisher.(Resyncer)
	if !ok {
		return
	}
	if err := r.Resync(ctx); err != nil {
		l.logger.Warn("resync after reconnect failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
