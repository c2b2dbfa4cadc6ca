package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/api/dto"
	"github.com/spec-kit/hospital-ops/internal/auth"
	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/realtime"
	"github.com/spec-kit/hospital-ops/internal/stats"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// DashboardViews is the dashboard surface the handler needs.
type DashboardViews interface {
	Stats(ctx context.Context) (stats.Stats, error)
	OpenView(ctx context.Context, profile domain.Profile, onUpdate func(realtime.Update)) (*realtime.View, error)
	CloseView(view *realtime.View)
}

// DashboardHandler serves aggregate stats and the live view stream.
type DashboardHandler struct {
	views     DashboardViews
	heartbeat time.Duration
	logger    *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewDashboardHandler constructs handler. heartbeat is the keep-alive comment interval
// on idle streams.
func NewDashboardHandler(views DashboardViews, heartbeat time.Duration, logger *zap.Logger) *DashboardHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{views: views, heartbeat: heartbeat, logger: logger, done: make(chan struct{})}
}

// Close ends every open stream so the server can shut down.
func (h *DashboardHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Stats GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	snapshot, err := h.views.Stats(c.UserContext())
	if err != nil {
		return apperrors.NewStoreReadError("compute stats", err)
	}
	return c.JSON(fiber.Map{"data": snapshot})
}

// Stream GET /api/dashboard/stream. The caller's dashboard is mounted for the lifetime of
// the connection and every refetch result is pushed as a server-sent event.
func (h *DashboardHandler) Stream(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	pending := newUpdateQueue()
	view, err := h.views.OpenView(c.UserContext(), principal.Profile, pending.push)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(zap.String("user_id", principal.UserID()), zap.String("view", view.Name()))
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.views.CloseView(view)
		logger.Info("dashboard stream opened")
		defer logger.Info("dashboard stream closed")

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				// Last updates go out before the stream ends.
				_ = flushUpdates(w, pending)
				return
			case <-pending.ready:
				if err := flushUpdates(w, pending); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func flushUpdates(w *bufio.Writer, pending *updateQueue) error {
	for _, u := range pending.drain() {
		if err := writeUpdate(w, u); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeUpdate(w *bufio.Writer, u realtime.Update) error {
	event := dto.ViewUpdateEvent{View: u.View, Query: string(u.Query), At: u.At}
	if u.Err != nil {
		event.Error = u.Err.Error()
	} else {
		event.Data = viewPayload(u.Data)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: update\ndata: %s\n\n", payload)
	return err
}

// updateQueue keeps the latest update per query until the stream writer drains it, so a
// slow client skips intermediate states but never misses the final one.
type updateQueue struct {
	mu     sync.Mutex
	order  []realtime.QueryID
	latest map[realtime.QueryID]realtime.Update
	ready  chan struct{}
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{latest: make(map[realtime.QueryID]realtime.Update), ready: make(chan struct{}, 1)}
}

func (q *updateQueue) push(u realtime.Update) {
	q.mu.Lock()
	if _, queued := q.latest[u.Query]; !queued {
		q.order = append(q.order, u.Query)
	}
	q.latest[u.Query] = u
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *updateQueue) drain() []realtime.Update {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]realtime.Update, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.latest[id])
	}
	q.order = q.order[:0]
	clear(q.latest)
	return out
}
