package changefeed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrFeedClosed is returned once Close has been called.
var ErrFeedClosed = errors.New("changefeed: feed closed")

// MemoryFeed is an in-process Feed and Publisher. Each subscription has its own
// delivery goroutine, so a slow handler never blocks the publisher or other subscribers.
// A subscriber whose buffer overflows is resynced (DISCONNECTED then SUBSCRIBED) instead
// of silently missing events.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string]*memorySub
	buffer int
	logger *zap.Logger
	closed bool
}

type memorySub struct {
	sub      *Subscription
	queue    chan ChangeEvent
	resync   atomic.Bool
	handler  Handler
	status   StatusHandler
	finished chan struct{}
}

// NewMemoryFeed creates a feed with the given per-subscription buffer.
func NewMemoryFeed(buffer int, logger *zap.Logger) *MemoryFeed {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryFeed{
		subs:   make(map[string]*memorySub),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers handler for events matching spec.
func (f *MemoryFeed) Subscribe(_ context.Context, spec Spec, handler Handler, status StatusHandler) (*Subscription, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("changefeed: handler required")
	}

	ms := &memorySub{
		queue:    make(chan ChangeEvent, f.buffer),
		handler:  handler,
		status:   status,
		finished: make(chan struct{}),
	}
	sub := &Subscription{ID: uuid.NewString(), Spec: spec, closed: make(chan struct{})}
	ms.sub = sub

	var once sync.Once
	sub.closeFn = func() error {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub.ID)
			close(ms.queue)
			f.mu.Unlock()
			<-ms.finished
			close(sub.closed)
		})
		return nil
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	f.subs[sub.ID] = ms
	f.mu.Unlock()

	go f.deliver(ms)
	return sub, nil
}

// Unsubscribe releases the subscription and waits for its delivery goroutine to stop.
func (f *MemoryFeed) Unsubscribe(sub *Subscription) error {
	if sub == nil || sub.closeFn == nil {
		return nil
	}
	return sub.closeFn()
}

// Publish fans ev out to every matching subscription.
func (f *MemoryFeed) Publish(_ context.Context, ev ChangeEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFeedClosed
	}
	for _, ms := range f.subs {
		if !ms.sub.Spec.Matches(ev) {
			continue
		}
		select {
		case ms.queue <- ev:
		default:
			ms.resync.Store(true)
			f.logger.Warn("change feed subscriber overflow; scheduling resync",
				zap.String("subscription_id", ms.sub.ID),
				zap.String("table", ms.sub.Spec.Table))
		}
	}
	return nil
}

// Resync makes every subscriber observe a reconnect.
func (f *MemoryFeed) Resync(context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ms := range f.subs {
		ms.resync.Store(true)
		// Wake the delivery goroutine when the queue is idle.
		select {
		case ms.queue <- ChangeEvent{}:
		default:
		}
	}
	return nil
}

// Close releases every subscription.
func (f *MemoryFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	subs := make([]*memorySub, 0, len(f.subs))
	for _, ms := range f.subs {
		subs = append(subs, ms)
	}
	f.mu.Unlock()

	for _, ms := range subs {
		_ = ms.sub.closeFn()
	}
}

func (f *MemoryFeed) deliver(ms *memorySub) {
	defer close(ms.finished)
	notifyStatus(ms.status, StatusSubscribed)
	for ev := range ms.queue {
		if ev.Table != "" {
			ms.handler(ev)
		}
		if ms.resync.CompareAndSwap(true, false) {
			notifyStatus(ms.status, StatusDisconnected)
			notifyStatus(ms.status, StatusSubscribed)
		}
	}
	notifyStatus(ms.status, StatusClosed)
}
