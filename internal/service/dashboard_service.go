package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/changefeed"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/realtime"
	"github.com/spec-kit/hospital-ops/internal/stats"
)

// DashboardService serves aggregate stats and live dashboard views.
type DashboardService struct {
	computer *stats.Computer
	store    stats.SnapshotStore
	sources  realtime.Sources
	feed     changefeed.Feed
	window   time.Duration
	recorder realtime.Recorder
	logger   *zap.Logger

	mu    sync.Mutex
	views map[*realtime.View]struct{}
}

// DashboardDependencies bundles the dashboard collaborators.
type DashboardDependencies struct {
	Computer       *stats.Computer
	Store          stats.SnapshotStore
	Sources        realtime.Sources
	Feed           changefeed.Feed
	DebounceWindow time.Duration
	Recorder       realtime.Recorder
	Logger         *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &DashboardService{
		computer: deps.Computer,
		store:    deps.Store,
		sources:  deps.Sources,
		feed:     deps.Feed,
		window:   deps.DebounceWindow,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		views:    make(map[*realtime.View]struct{}),
	}
	s.sources.Stats = func(ctx context.Context) (any, error) {
		return s.computeAndStore(ctx)
	}
	return s
}

// Stats returns the cached snapshot when fresh, otherwise computes a new one.
func (s *DashboardService) Stats(ctx context.Context) (stats.Stats, error) {
	if s.store != nil {
		cached, ok, err := s.store.Load(ctx)
		if err != nil {
			s.logger.Warn("load stats snapshot failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}
	return s.computeAndStore(ctx)
}

// Refresh is the single refresh entry point for the polling backstop. Live views rerun
// their stats query through the same path a change event takes; with no live view the
// snapshot is recomputed so Stats stays warm.
func (s *DashboardService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	views := make([]*realtime.View, 0, len(s.views))
	for v := range s.views {
		if v.Name() == realtime.StaffDashboard {
			views = append(views, v)
		}
	}
	s.mu.Unlock()

	if len(views) == 0 {
		_, err := s.computeAndStore(ctx)
		return err
	}
	for _, v := range views {
		v.Trigger(realtime.QueryStats)
	}
	return nil
}

// OpenView mounts the dashboard matching profile's role. The caller must CloseView it.
func (s *DashboardService) OpenView(ctx context.Context, profile domain.Profile, onUpdate func(realtime.Update)) (*realtime.View, error) {
	def := realtime.DefinitionFor(s.sources, profile)
	view, err := realtime.NewView(def, s.feed, realtime.Options{
		Window:   s.window,
		Logger:   s.logger.With(zap.String("user_id", profile.UserID)),
		Recorder: s.recorder,
		OnUpdate: onUpdate,
	})
	if err != nil {
		return nil, err
	}
	if err := view.Mount(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.views[view] = struct{}{}
	s.mu.Unlock()
	return view, nil
}

// CloseView unmounts view and forgets it.
func (s *DashboardService) CloseView(view *realtime.View) {
	s.mu.Lock()
	delete(s.views, view)
	s.mu.Unlock()
	view.Unmount()
}

// OpenViews returns the number of mounted views.
func (s *DashboardService) OpenViews() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *DashboardService) computeAndStore(ctx context.Context) (stats.Stats, error) {
	computed, err := s.computer.Compute(ctx)
	if err != nil {
		return stats.Stats{}, err
	}
	if s.store != nil {
		if err := s.store.Save(ctx, computed); err != nil {
			s.logger.Warn("save stats snapshot failed", zap.Error(err))
		}
	}
	return computed, nil
}
