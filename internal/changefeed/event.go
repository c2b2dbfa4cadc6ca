// Package changefeed delivers row-level change events from the store to subscribers.
//
// Delivery is at-least-once for committed writes and ordered per table for a given
// subscription. Nothing is guaranteed while a subscription is disconnected: every
// subscriber must refetch its baseline whenever it observes StatusSubscribed, which is
// emitted on the initial subscribe and again after any reconnect or resync.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the kind of row mutation.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	// EventAll is only meaningful in a Spec.
	EventAll EventType = "*"
)

// ChangeEvent is the envelope delivered to subscribers. It is never persisted.
type ChangeEvent struct {
	Table      string         `json:"table"`
	Type       EventType      `json:"type"`
	Old        map[string]any `json:"old,omitempty"`
	New        map[string]any `json:"new,omitempty"`
	CommitTime time.Time      `json:"commit_time"`
}

// Row returns the row image a filter applies to: New, or Old for deletes.
func (e ChangeEvent) Row() map[string]any {
	if e.Type == EventDelete || e.New == nil {
		return e.Old
	}
	return e.New
}

// Field returns a column of Row() as a string.
func (e ChangeEvent) Field(column string) (string, bool) {
	return columnValue(e.Row(), column)
}

func columnValue(row map[string]any, column string) (string, bool) {
	if row == nil {
		return "", false
	}
	v, ok := row[column]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Filter is a column-equality predicate.
type Filter struct {
	Column string
	Value  string
}

// Spec selects which events a subscription receives.
type Spec struct {
	Table  string
	Events []EventType
	Filter *Filter
}

// Matches reports whether ev should be delivered under s. Updates match on either
// row image.
// Events carrying no row image (oversized payloads) pass filters so subscribers still refetch.
func (s Spec) Matches(ev ChangeEvent) bool {
	if ev.Table != s.Table {
		return false
	}
	if !s.acceptsType(ev.Type) {
		return false
	}
	if s.Filter == nil || ev.Row() == nil {
		return true
	}
	if v, ok := ev.Field(s.Filter.Column); ok && v == s.Filter.Value {
		return true
	}
	// An update moving a row out of the filter still concerns whoever held it before.
	if ev.Type == EventUpdate {
		v, ok := columnValue(ev.Old, s.Filter.Column)
		return ok && v == s.Filter.Value
	}
	return false
}

func (s Spec) acceptsType(t EventType) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, accepted := range s.Events {
		if accepted == EventAll || accepted == t {
			return true
		}
	}
	return false
}

// Validate checks a Spec before a subscription is opened.
func (s Spec) Validate() error {
	if s.Table == "" {
		return errors.New("changefeed: table required")
	}
	if s.Filter != nil && s.Filter.Column == "" {
		return errors.New("changefeed: filter column required")
	}
	return nil
}

// Status is the connection state of a subscription.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusDisconnected Status = "DISCONNECTED"
	StatusClosed       Status = "CLOSED"
)

// Handler receives matching change events.
type Handler func(ChangeEvent)

// StatusHandler receives connection state changes. Anything but StatusSubscribed means
// the subscriber's state may be stale.
type StatusHandler func(Status)

// Feed opens and releases subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, spec Spec, handler Handler, status StatusHandler) (*Subscription, error)
	Unsubscribe(sub *Subscription) error
}

// Publisher injects committed changes into a feed.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Resyncer forces every subscriber to refetch its baseline, used after the upstream
// source lost events (e.g. the store listener reconnected).
type Resyncer interface {
	Resync(ctx context.Context) error
}

// Subscription is a handle returned by Feed.Subscribe. Unsubscribing twice is a no-op.
type Subscription struct {
	ID   string
	Spec Spec

	closeFn func() error
	closed  chan struct{}
}

// Done is closed once the subscription has been released.
func (s *Subscription) Done() <-chan struct{} {
	return s.closed
}

// Decode parses a JSON change envelope.
func Decode(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" {
		return ChangeEvent{}, errors.New("decode change event: missing table")
	}
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return ChangeEvent{}, fmt.Errorf("decode change event: unknown type %q", ev.Type)
	}
	return ev, nil
}

// Encode renders the envelope for transports.
func Encode(ev ChangeEvent) ([]byte, error) {
	return json.Marshal(ev)
}

func notifyStatus(h StatusHandler, st Status) {
	if h != nil {
		h(st)
	}
}
