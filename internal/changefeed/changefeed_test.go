package changefeed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu       sync.Mutex
	events   []ChangeEvent
	statuses []Status
}

func (r *recorder) handle(ev ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) status(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
}

func (r *recorder) snapshot() ([]ChangeEvent, []Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChangeEvent(nil), r.events...), append([]Status(nil), r.statuses...)
}

func shiftEvent(doctorID, status string) ChangeEvent {
	return ChangeEvent{
		Table: "doctor_shifts",
		Type:  EventUpdate,
		New:   map[string]any{"doctor_id": doctorID, "status": status},
	}
}

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"table":"emergencies","type":"INSERT","new":{"id":"e1","resolved":false},"commit_time":"2026-10-19T10:00:00.5+00:00"}`))
	require.NoError(t, err)
	assert.Equal(t, "emergencies", ev.Table)
	assert.Equal(t, EventInsert, ev.Type)
	id, ok := ev.Field("id")
	require.True(t, ok)
	assert.Equal(t, "e1", id)
	resolved, ok := ev.Field("resolved")
	require.True(t, ok)
	assert.Equal(t, "false", resolved)

	_, err = Decode([]byte(`{"table":"emergencies","type":"TRUNCATE"}`))
	require.Error(t, err)
	_, err = Decode([]byte(`{"type":"INSERT"}`))
	require.Error(t, err)
	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestSpecMatches(t *testing.T) {
	spec := Spec{Table: "doctor_shifts", Filter: &Filter{Column: "doctor_id", Value: "d1"}}

	assert.True(t, spec.Matches(shiftEvent("d1", "on-duty")))
	assert.False(t, spec.Matches(shiftEvent("d2", "on-duty")))
	assert.False(t, spec.Matches(ChangeEvent{Table: "emergencies", Type: EventInsert}))

	deleted := ChangeEvent{Table: "doctor_shifts", Type: EventDelete, Old: map[string]any{"doctor_id": "d1"}}
	assert.True(t, spec.Matches(deleted))

	reassigned := ChangeEvent{
		Table: "doctor_shifts", Type: EventUpdate,
		Old: map[string]any{"doctor_id": "d1"}, New: map[string]any{"doctor_id": "d2"},
	}
	assert.True(t, spec.Matches(reassigned))
	assert.True(t, Spec{Table: "doctor_shifts", Filter: &Filter{Column: "doctor_id", Value: "d2"}}.Matches(reassigned))
	assert.False(t, Spec{Table: "doctor_shifts", Filter: &Filter{Column: "doctor_id", Value: "d3"}}.Matches(reassigned))

	// Oversized payloads carry no row image; filtered subscribers still get them.
	assert.True(t, spec.Matches(ChangeEvent{Table: "doctor_shifts", Type: EventUpdate}))

	inserts := Spec{Table: "emergencies", Events: []EventType{EventInsert}}
	assert.True(t, inserts.Matches(ChangeEvent{Table: "emergencies", Type: EventInsert}))
	assert.False(t, inserts.Matches(ChangeEvent{Table: "emergencies", Type: EventUpdate}))

	all := Spec{Table: "emergencies", Events: []EventType{EventAll}}
	assert.True(t, all.Matches(ChangeEvent{Table: "emergencies", Type: EventDelete}))
}

func TestSpecValidate(t *testing.T) {
	require.Error(t, Spec{}.Validate())
	require.Error(t, Spec{Table: "x", Filter: &Filter{}}.Validate())
	require.NoError(t, Spec{Table: "x"}.Validate())
}

func TestMemoryFeed_DeliversInOrderWithFilter(t *testing.T) {
	feed := NewMemoryFeed(32, zap.NewNop())
	defer feed.Close()

	rec := &recorder{}
	sub, err := feed.Subscribe(context.Background(),
		Spec{Table: "doctor_shifts", Filter: &Filter{Column: "doctor_id", Value: "d1"}},
		rec.handle, rec.status)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, feed.Publish(context.Background(), shiftEvent("d1", fmt.Sprintf("s%d", i))))
		require.NoError(t, feed.Publish(context.Background(), shiftEvent("d2", "ignored")))
	}

	require.Eventually(t, func() bool {
		events, _ := rec.snapshot()
		return len(events) == 10
	}, time.Second, 5*time.Millisecond)

	events, statuses := rec.snapshot()
	for i, ev := range events {
		status, _ := ev.Field("status")
		assert.Equal(t, fmt.Sprintf("s%d", i), status)
	}
	assert.Equal(t, []Status{StatusSubscribed}, statuses)

	require.NoError(t, feed.Unsubscribe(sub))
	<-sub.Done()
	_, statuses = rec.snapshot()
	assert.Equal(t, []Status{StatusSubscribed, StatusClosed}, statuses)
}

func TestMemoryFeed_UnsubscribeStopsDelivery(t *testing.T) {
	feed := NewMemoryFeed(8, zap.NewNop())
	defer feed.Close()

	rec := &recorder{}
	sub, err := feed.Subscribe(context.Background(), Spec{Table: "emergencies"}, rec.handle, rec.status)
	require.NoError(t, err)
	require.NoError(t, feed.Unsubscribe(sub))
	require.NoError(t, feed.Unsubscribe(sub))

	require.NoError(t, feed.Publish(context.Background(), ChangeEvent{Table: "emergencies", Type: EventInsert}))
	time.Sleep(20 * time.Millisecond)

	events, _ := rec.snapshot()
	assert.Empty(t, events)
}

func TestMemoryFeed_OverflowTriggersResync(t *testing.T) {
	feed := NewMemoryFeed(1, zap.NewNop())
	defer feed.Close()

	release := make(chan struct{})
	rec := &recorder{}
	handler := func(ev ChangeEvent) {
		<-release
		rec.handle(ev)
	}
	_, err := feed.Subscribe(context.Background(), Spec{Table: "emergencies"}, handler, rec.status)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, feed.Publish(context.Background(), ChangeEvent{Table: "emergencies", Type: EventInsert}))
	}
	close(release)

	require.Eventually(t, func() bool {
		_, statuses := rec.snapshot()
		return len(statuses) >= 3
	}, time.Second, 5*time.Millisecond)

	_, statuses := rec.snapshot()
	assert.Equal(t, []Status{StatusSubscribed, StatusDisconnected, StatusSubscribed}, statuses[:3])
}

func TestMemoryFeed_Resync(t *testing.T) {
	feed := NewMemoryFeed(4, zap.NewNop())
	defer feed.Close()

	rec := &recorder{}
	_, err := feed.Subscribe(context.Background(), Spec{Table: "help_requests"}, rec.handle, rec.status)
	require.NoError(t, err)

	require.NoError(t, feed.Resync(context.Background()))

	require.Eventually(t, func() bool {
		_, statuses := rec.snapshot()
		return len(statuses) == 3
	}, time.Second, 5*time.Millisecond)

	events, statuses := rec.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, []Status{StatusSubscribed, StatusDisconnected, StatusSubscribed}, statuses)
}

func TestMemoryFeed_ClosedRejectsSubscribe(t *testing.T) {
	feed := NewMemoryFeed(4, zap.NewNop())
	feed.Close()

	_, err := feed.Subscribe(context.Background(), Spec{Table: "emergencies"}, func(ChangeEvent) {}, nil)
	require.ErrorIs(t, err, ErrFeedClosed)
	require.ErrorIs(t, feed.Publish(context.Background(), ChangeEvent{Table: "emergencies"}), ErrFeedClosed)
}
