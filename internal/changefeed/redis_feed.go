package changefeed

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const resyncChannelSuffix = "__resync"

// RedisFeed carries change events over Redis Pub/Sub so every service instance sees
// the changes picked up by whichever instance runs the store listener.
//
// One channel per table (<prefix>:<table>) keeps per-table commit order on a single
// subscription. go-redis reconnects and resubscribes on its own; the second and later
// subscribe confirmations are surfaced as DISCONNECTED followed by SUBSCRIBED.
type RedisFeed struct {
	client *redis.Client
	prefix string
	buffer int
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewRedisFeed builds a feed on top of an existing client.
func NewRedisFeed(client *redis.Client, prefix string, buffer int, logger *zap.Logger) *RedisFeed {
	if prefix == "" {
		prefix = "changes"
	}
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeed{
		client: client,
		prefix: prefix,
		buffer: buffer,
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// Channel returns the Pub/Sub channel for table.
func (f *RedisFeed) Channel(table string) string {
	return f.prefix + ":" + table
}

func (f *RedisFeed) resyncChannel() string {
	return f.prefix + ":" + resyncChannelSuffix
}

// Publish sends ev to its table channel.
func (f *RedisFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.Channel(ev.Table), payload).Err()
}

// Resync asks every subscriber on every instance to refetch its baseline.
func (f *RedisFeed) Resync(ctx context.Context) error {
	return f.client.Publish(ctx, f.resyncChannel(), "resync").Err()
}

// Subscribe opens a dedicated Pub/Sub connection for spec.Table.
func (f *RedisFeed) Subscribe(ctx context.Context, spec Spec, handler Handler, status StatusHandler) (*Subscription, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("changefeed: handler required")
	}

	tableChannel := f.Channel(spec.Table)
	ps := f.client.Subscribe(ctx, tableChannel, f.resyncChannel())
	msgs := ps.ChannelWithSubscriptions(redis.WithChannelSize(f.buffer))

	sub := &Subscription{ID: uuid.NewString(), Spec: spec, closed: make(chan struct{})}
	finished := make(chan struct{})

	var once sync.Once
	sub.closeFn = func() error {
		var err error
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub.ID)
			f.mu.Unlock()
			err = ps.Close()
			<-finished
			close(sub.closed)
		})
		return err
	}

	f.mu.Lock()
	f.subs[sub.ID] = sub
	f.mu.Unlock()

	go func() {
		defer close(finished)
		f.consume(sub, tableChannel, msgs, handler, status)
	}()
	return sub, nil
}

// Unsubscribe closes the subscription's Pub/Sub connection.
func (f *RedisFeed) Unsubscribe(sub *Subscription) error {
	if sub == nil || sub.closeFn == nil {
		return nil
	}
	return sub.closeFn()
}

// Close releases every open subscription.
func (f *RedisFeed) Close() {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range subs {
		_ = f.Unsubscribe(sub)
	}
}

func (f *RedisFeed) consume(sub *Subscription, tableChannel string, msgs <-chan interface{}, handler Handler, status StatusHandler) {
	connected := false
	for msg := range msgs {
		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind != "subscribe" || m.Channel != tableChannel {
				continue
			}
			if connected {
				notifyStatus(status, StatusDisconnected)
			}
			connected = true
			notifyStatus(status, StatusSubscribed)
		case *redis.Message:
			if m.Channel == f.resyncChannel() {
				notifyStatus(status, StatusDisconnected)
				notifyStatus(status, StatusSubscribed)
				continue
			}
			ev, err := Decode([]byte(m.Payload))
			if err != nil {
				f.logger.Warn("dropping malformed change event",
					zap.String("channel", m.Channel),
					zap.String("subscription_id", sub.ID),
					zap.Error(err))
				continue
			}
			if sub.Spec.Matches(ev) {
				handler(ev)
			}
		}
	}
	notifyStatus(status, StatusClosed)
}
