// Package realtime keeps dashboard views consistent with store mutations.
//
// A View subscribes to the change feed for every table it depends on and maps each
// incoming event to the read queries that must be rerun. Refetches are debounced per
// query, and results are only committed while the view is mounted.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/changefeed"
)

// DefaultDebounceWindow collapses bursts of writes into one refetch.
const DefaultDebounceWindow = 250 * time.Millisecond

// ErrAlreadyMounted is returned by Mount on a view that is already live.
var ErrAlreadyMounted = errors.New("realtime: view already mounted")

// QueryID names a read query within a view.
type QueryID string

// Query loads the data behind a QueryID.
type Query func(ctx context.Context) (any, error)

// Binding maps change events on one table to the queries they invalidate.
type Binding struct {
	Table  string
	Events []changefeed.EventType
	// Filter narrows the subscription server-side. Events on a filtered binding always
	// trigger its queries.
	Filter *changefeed.Filter
	// Relevant screens events on unfiltered bindings. Nil accepts every event.
	Relevant func(changefeed.ChangeEvent) bool
	Queries  []QueryID
}

// Definition is the static shape of a dashboard.
type Definition struct {
	Name     string
	Bindings []Binding
	Queries  map[QueryID]Query
}

// Validate checks that every binding refers to a known query.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("realtime: view name required")
	}
	for id, q := range d.Queries {
		if q == nil {
			return fmt.Errorf("realtime: view %s has nil query %s", d.Name, id)
		}
	}
	for _, b := range d.Bindings {
		if b.Table == "" {
			return fmt.Errorf("realtime: view %s has a binding without table", d.Name)
		}
		for _, id := range b.Queries {
			if _, ok := d.Queries[id]; !ok {
				return fmt.Errorf("realtime: view %s binds %s to unknown query %s", d.Name, b.Table, id)
			}
		}
	}
	return nil
}

// Update is the outcome of one refetch.
type Update struct {
	View  string    `json:"view"`
	Query QueryID   `json:"query"`
	Data  any       `json:"data,omitempty"`
	Err   error     `json:"-"`
	At    time.Time `json:"at"`
}

// Recorder receives refetch and discard counts. *observability.Metrics satisfies it.
type Recorder interface {
	RecordRefetch(view, query string, err error)
	RecordDiscard(view, table string)
}

// Options tune a View.
type Options struct {
	Window   time.Duration
	Logger   *zap.Logger
	Recorder Recorder
	// OnUpdate is called after each committed refetch, from the refetch goroutine.
	OnUpdate func(Update)
}

// View is a mounted dashboard.
type View struct {
	def      Definition
	feed     changefeed.Feed
	window   time.Duration
	logger   *zap.Logger
	recorder Recorder
	onUpdate func(Update)

	mu         sync.Mutex
	mounted    bool
	ctx        context.Context
	cancel     context.CancelFunc
	subs       []*changefeed.Subscription
	debouncers map[QueryID]*Debouncer
	seq        map[QueryID]uint64
	committed  map[QueryID]uint64
	snapshot   map[QueryID]Update
	inflight   sync.WaitGroup
}

// NewView validates def and prepares an unmounted view.
func NewView(def Definition, feed changefeed.Feed, opts Options) (*View, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, errors.New("realtime: change feed required")
	}
	if opts.Window <= 0 {
		opts.Window = DefaultDebounceWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &View{
		def:       def,
		feed:      feed,
		window:    opts.Window,
		logger:    opts.Logger.With(zap.String("view", def.Name)),
		recorder:  opts.Recorder,
		onUpdate:  opts.OnUpdate,
		seq:       make(map[QueryID]uint64),
		committed: make(map[QueryID]uint64),
		snapshot:  make(map[QueryID]Update),
	}, nil
}

// Name returns the view's definition name.
func (v *View) Name() string { return v.def.Name }

// Mount subscribes every binding. Each SUBSCRIBED status, initial or after a reconnect,
// reruns the binding's queries as a baseline fetch.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	v.ctx, v.cancel = context.WithCancel(context.WithoutCancel(ctx))
	v.mounted = true
	v.debouncers = make(map[QueryID]*Debouncer, len(v.def.Queries))
	for id := range v.def.Queries {
		id := id
		v.debouncers[id] = NewDebouncer(v.window, func() { v.Trigger(id) })
	}
	v.mu.Unlock()

	subs := make([]*changefeed.Subscription, 0, len(v.def.Bindings))
	for _, b := range v.def.Bindings {
		b := b
		spec := changefeed.Spec{Table: b.Table, Events: b.Events, Filter: b.Filter}
		sub, err := v.feed.Subscribe(ctx, spec,
			func(ev changefeed.ChangeEvent) { v.onEvent(b, ev) },
			func(st changefeed.Status) { v.onStatus(b, st) })
		if err != nil {
			for _, s := range subs {
				_ = v.feed.Unsubscribe(s)
			}
			v.Unmount()
			return fmt.Errorf("subscribe %s: %w", b.Table, err)
		}
		subs = append(subs, sub)
	}

	v.mu.Lock()
	v.subs = subs
	v.mu.Unlock()
	v.logger.Debug("view mounted", zap.Int("bindings", len(subs)))
	return nil
}

// Unmount releases every subscription and pending timer. Refetches already in flight
// finish but their results are dropped.
func (v *View) Unmount() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	subs := v.subs
	v.subs = nil
	for _, d := range v.debouncers {
		d.Stop()
	}
	cancel := v.cancel
	v.mu.Unlock()

	for _, sub := range subs {
		if err := v.feed.Unsubscribe(sub); err != nil {
			v.logger.Warn("unsubscribe failed", zap.String("table", sub.Spec.Table), zap.Error(err))
		}
	}
	if cancel != nil {
		cancel()
	}
	v.logger.Debug("view unmounted")
}

// Mounted reports whether the view is live.
func (v *View) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}

// Trigger reruns the given queries now, or every query when none are named. It is the
// one refresh path shared by change events, reconnect baselines and interval polling.
func (v *View) Trigger(ids ...QueryID) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	if len(ids) == 0 {
		for id := range v.def.Queries {
			ids = append(ids, id)
		}
	}
	ctx := v.ctx
	type job struct {
		id  QueryID
		seq uint64
	}
	jobs := make([]job, 0, len(ids))
	for _, id := range ids {
		if _, ok := v.def.Queries[id]; !ok {
			continue
		}
		v.seq[id]++
		jobs = append(jobs, job{id: id, seq: v.seq[id]})
	}
	v.inflight.Add(len(jobs))
	v.mu.Unlock()

	for _, j := range jobs {
		go func(id QueryID, seq uint64) {
			defer v.inflight.Done()
			v.refetch(ctx, id, seq)
		}(j.id, j.seq)
	}
}

// Snapshot returns the last committed result of every query.
func (v *View) Snapshot() map[QueryID]Update {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[QueryID]Update, len(v.snapshot))
	for k, u := range v.snapshot {
		out[k] = u
	}
	return out
}

// Wait blocks until refetches started so far have finished.
func (v *View) Wait() {
	v.inflight.Wait()
}

func (v *View) onEvent(b Binding, ev changefeed.ChangeEvent) {
	if b.Filter == nil && b.Relevant != nil && !b.Relevant(ev) {
		if v.recorder != nil {
			v.recorder.RecordDiscard(v.def.Name, b.Table)
		}
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	for _, id := range b.Queries {
		if d, ok := v.debouncers[id]; ok {
			d.Schedule()
		}
	}
}

func (v *View) onStatus(b Binding, st changefeed.Status) {
	switch st {
	case changefeed.StatusSubscribed:
		v.Trigger(b.Queries...)
	case changefeed.StatusDisconnected:
		v.logger.Warn("change feed disconnected; view may be stale", zap.String("table", b.Table))
	}
}

func (v *View) refetch(ctx context.Context, id QueryID, seq uint64) {
	data, err := v.def.Queries[id](ctx)
	if v.recorder != nil {
		v.recorder.RecordRefetch(v.def.Name, string(id), err)
	}

	v.mu.Lock()
	if !v.mounted || seq < v.committed[id] {
		v.mu.Unlock()
		return
	}
	u := Update{View: v.def.Name, Query: id, Err: err, At: time.Now().UTC()}
	if err != nil {
		// Keep the last good data visible next to the error.
		u.Data = v.snapshot[id].Data
		v.logger.Error("refetch failed", zap.String("query", string(id)), zap.Error(err))
	} else {
		u.Data = data
	}
	v.committed[id] = seq
	v.snapshot[id] = u
	onUpdate := v.onUpdate
	v.mu.Unlock()

	if onUpdate != nil {
		onUpdate(u)
	}
}
