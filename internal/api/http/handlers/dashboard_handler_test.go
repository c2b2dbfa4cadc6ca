package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/auth"
	"github.com/spec-kit/hospital-ops/internal/changefeed"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/realtime"
	"github.com/spec-kit/hospital-ops/internal/stats"
)

// liveViews mounts a one-query view on an in-process feed.
type liveViews struct {
	feed *changefeed.MemoryFeed

	mu       sync.Mutex
	profiles []domain.Profile
	closed   int
	updated  chan struct{}
	once     sync.Once
}

func (l *liveViews) Stats(context.Context) (stats.Stats, error) {
	return stats.Stats{TotalDoctors: 4}, nil
}

func (l *liveViews) OpenView(ctx context.Context, profile domain.Profile, onUpdate func(realtime.Update)) (*realtime.View, error) {
	l.mu.Lock()
	l.profiles = append(l.profiles, profile)
	l.mu.Unlock()

	def := realtime.Definition{
		Name:     realtime.StaffDashboard,
		Bindings: []realtime.Binding{{Table: "emergencies", Queries: []realtime.QueryID{realtime.QueryActiveEmergencies}}},
		Queries: map[realtime.QueryID]realtime.Query{
			realtime.QueryActiveEmergencies: func(context.Context) (any, error) {
				return []domain.Emergency{{ID: "e-1", Location: "ER", Condition: "Stroke", Status: domain.EmergencyStatusActive}}, nil
			},
		},
	}
	view, err := realtime.NewView(def, l.feed, realtime.Options{
		Window: 10 * time.Millisecond,
		Logger: zap.NewNop(),
		OnUpdate: func(u realtime.Update) {
			onUpdate(u)
			l.once.Do(func() { close(l.updated) })
		},
	})
	if err != nil {
		return nil, err
	}
	return view, view.Mount(ctx)
}

func (l *liveViews) CloseView(view *realtime.View) {
	view.Unmount()
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
}

func TestDashboardStreamPushesViewUpdates(t *testing.T) {
	feed := changefeed.NewMemoryFeed(16, zap.NewNop())
	defer feed.Close()
	views := &liveViews{feed: feed, updated: make(chan struct{})}
	h := NewDashboardHandler(views, time.Hour, zap.NewNop())

	app := fiber.New()
	app.Get("/stream", func(c *fiber.Ctx) error {
		auth.WithPrincipal(c, &auth.Principal{Profile: domain.Profile{UserID: "staff-1", Role: domain.RoleStaff}})
		return c.Next()
	}, h.Stream)

	// End the stream once the baseline refetch has been queued.
	go func() {
		select {
		case <-views.updated:
		case <-time.After(2 * time.Second):
		}
		h.Close()
	}()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	frame := string(body)
	require.True(t, strings.HasPrefix(frame, "event: update\ndata: "), frame)

	var event map[string]any
	payload := strings.TrimSuffix(strings.TrimPrefix(frame, "event: update\ndata: "), "\n\n")
	require.NoError(t, json.Unmarshal([]byte(payload), &event))
	assert.Equal(t, string(realtime.QueryActiveEmergencies), event["query"])
	rows := event["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "e-1", rows[0].(map[string]any)["id"])

	views.mu.Lock()
	defer views.mu.Unlock()
	require.Len(t, views.profiles, 1)
	assert.Equal(t, "staff-1", views.profiles[0].UserID)
	assert.Equal(t, 1, views.closed)
}

func TestDashboardStreamRequiresPrincipal(t *testing.T) {
	h := NewDashboardHandler(&liveViews{}, time.Hour, zap.NewNop())
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(http.StatusUnauthorized)
	}})
	app.Get("/stream", h.Stream)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboardStats(t *testing.T) {
	h := NewDashboardHandler(&liveViews{}, time.Hour, zap.NewNop())
	app := fiber.New()
	app.Get("/stats", h.Stats)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data stats.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 4, body.Data.TotalDoctors)
}
