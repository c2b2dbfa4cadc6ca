package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

	"github.com/spec-kit/hospital-ops/internal/domain"
	"github.com/spec-kit/hospital-ops/internal/notification"
	"github.com/spec-kit/hospital-ops/internal/observability"
	"github.com/spec-kit/hospital-ops/internal/realtime"
	"github.com/spec-kit/hospital-ops/internal/service"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

type fakeResolver struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, id, source string, _ *service.Actor) (service.ResolveOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source)
	if strings.TrimSpace(id) == "" {
		return service.ResolveOutcome{}, apperrors.NewMissingParameter("id")
	}
	if f.err != nil {
		return service.ResolveOutcome{ID: id}, f.err
	}
	return service.ResolveOutcome{ID: id, Found: true}, nil
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestResolveHandler(t *testing.T) {
	resolver := &fakeResolver{}
	app := fiber.New()
	h := NewResolveHandler(resolver, nil)
	app.Get("/resolve-emergency", h.Resolve)
	app.Post("/resolve-emergency", h.Resolve)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/resolve-emergency?id=abc-123", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body := readBody(t, resp)
	assert.Contains(t, body, "Emergency Resolved")
	assert.Contains(t, body, "abc-123")

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/resolve-emergency?id=abc-123", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{service.ResolvedFromEmailLink, service.ResolvedFromEmailLink}, resolver.calls)
}

func TestResolveHandlerMissingID(t *testing.T) {
	app := fiber.New()
	app.Get("/resolve-emergency", NewResolveHandler(&fakeResolver{}, nil).Resolve)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/resolve-emergency", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Missing Emergency ID")
}

func TestResolveHandlerStoreFailureRendersHTML(t *testing.T) {
	resolver := &fakeResolver{err: apperrors.NewStoreWriteError("resolve emergency", errors.New("connection reset"))}
	app := fiber.New()
	app.Get("/resolve-emergency", NewResolveHandler(resolver, nil).Resolve)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/resolve-emergency?id=%3Cscript%3E", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body := readBody(t, resp)
	assert.Contains(t, body, "Error Resolving Emergency")
	assert.Contains(t, body, "connection reset")
	assert.NotContains(t, body, "<script>")
}

type stubChannel struct {
	configured bool
	failFor    map[string]bool
}

func (s stubChannel) Configured() bool { return s.configured }

func (s stubChannel) Send(_ context.Context, msg notification.Message) error {
	if s.failFor[msg.To] {
		return errors.New("mailbox full")
	}
	return nil
}

type doctorDirectory struct {
	doctors []domain.Profile
	emails  map[string]string
}

func newDoctorDirectory(n int) *doctorDirectory {
	d := &doctorDirectory{emails: map[string]string{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("doc-%d", i)
		d.doctors = append(d.doctors, domain.Profile{UserID: id, Role: domain.RoleDoctor})
		d.emails[id] = fmt.Sprintf("doctor%d@hospital.test", i)
	}
	return d
}

func (d *doctorDirectory) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	if role != domain.RoleDoctor {
		return nil, nil
	}
	return d.doctors, nil
}

func (d *doctorDirectory) EmailForUser(_ context.Context, id string) (string, error) {
	return d.emails[id], nil
}

func notificationsApp(channel notification.Channel, directory *doctorDirectory) *fiber.App {
	dispatcher := notification.NewDispatcher(channel, directory, directory, notification.Options{MaxWorkers: 1})
	h := NewNotificationsHandler(service.NewNotificationService(nil, dispatcher, nil, 0))
	app := fiber.New()
	app.Post("/send-emergency-notifications", h.Send)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

var chestPain = map[string]any{
	"emergencyId": "P1-emergency",
	"location":    "Ward 2",
	"condition":   "Chest pain",
}

func TestSendNotificationsAllDelivered(t *testing.T) {
	app := notificationsApp(stubChannel{configured: true}, newDoctorDirectory(3))

	resp, body := postJSON(t, app, "/send-emergency-notifications", chestPain)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["notificationsSent"])
	assert.EqualValues(t, 3, body["totalDoctors"])
	assert.Equal(t, "Emergency notifications sent to 3 of 3 doctors", body["message"])
	assert.Len(t, body["doctorEmailsSent"], 3)

	details := body["emergencyDetails"].(map[string]any)
	assert.Equal(t, "high", details["priority"])
	assert.Equal(t, "Unknown", details["patientName"])
}

func TestSendNotificationsPartialFailure(t *testing.T) {
	channel := stubChannel{configured: true, failFor: map[string]bool{"doctor2@hospital.test": true}}
	app := notificationsApp(channel, newDoctorDirectory(3))

	resp, body := postJSON(t, app, "/send-emergency-notifications", chestPain)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["notificationsSent"])

	results := body["emailResults"].([]any)
	require.Len(t, results, 3)
	failed := results[1].(map[string]any)
	assert.Equal(t, "doctor2@hospital.test", failed["email"])
	assert.Equal(t, false, failed["success"])
	assert.NotEmpty(t, failed["error"])
}

func TestSendNotificationsAllFailedIsStill200(t *testing.T) {
	channel := stubChannel{configured: true, failFor: map[string]bool{"doctor1@hospital.test": true}}
	app := notificationsApp(channel, newDoctorDirectory(1))

	resp, body := postJSON(t, app, "/send-emergency-notifications", chestPain)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.EqualValues(t, 0, body["notificationsSent"])
}

func TestSendNotificationsErrors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		app := notificationsApp(stubChannel{configured: true}, newDoctorDirectory(1))
		resp, body := postJSON(t, app, "/send-emergency-notifications", map[string]any{"emergencyId": "e-1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "Missing required fields")
	})

	t.Run("no recipients", func(t *testing.T) {
		app := notificationsApp(stubChannel{configured: true}, newDoctorDirectory(0))
		resp, body := postJSON(t, app, "/send-emergency-notifications", chestPain)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.EqualValues(t, 0, body["notificationsSent"])
	})

	t.Run("channel not configured", func(t *testing.T) {
		app := notificationsApp(stubChannel{configured: false}, newDoctorDirectory(3))
		resp, body := postJSON(t, app, "/send-emergency-notifications", chestPain)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "email service not configured", body["error"])
	})
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.RecordDispatch(3, 2)
	healthy := NewHealthHandler("hospital-ops", "test", map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
	}, metrics)
	broken := NewHealthHandler("hospital-ops", "test", map[string]Pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	}, metrics)

	app := fiber.New()
	app.Get("/ok/ready", healthy.Ready)
	app.Get("/bad/ready", broken.Ready)
	app.Get("/metrics", healthy.Metrics)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/bad/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "dial tcp: refused")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	var snap observability.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.EqualValues(t, 2, snap.Dispatch.Sent)
}

func TestUpdateQueueKeepsLatestPerQuery(t *testing.T) {
	q := newUpdateQueue()
	q.push(realtime.Update{Query: realtime.QueryStats, Data: 1})
	q.push(realtime.Update{Query: realtime.QueryActiveEmergencies, Data: "a"})
	q.push(realtime.Update{Query: realtime.QueryStats, Data: 2})

	select {
	case <-q.ready:
	default:
		t.Fatal("queue not signalled")
	}
	drained := q.drain()
	require.Len(t, drained, 2)
	assert.Equal(t, realtime.QueryStats, drained[0].Query)
	assert.Equal(t, 2, drained[0].Data)
	assert.Equal(t, realtime.QueryActiveEmergencies, drained[1].Query)
	assert.Empty(t, q.drain())
}

func TestWriteUpdate(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	name := "Jane"
	err := writeUpdate(w, realtime.Update{
		View:  realtime.StaffDashboard,
		Query: realtime.QueryActiveEmergencies,
		Data:  []domain.Emergency{{ID: "e-1", PatientName: &name, Location: "ER"}},
		At:    at,
	})
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	frame := buf.String()
	require.True(t, strings.HasPrefix(frame, "event: update\ndata: "))
	require.True(t, strings.HasSuffix(frame, "\n\n"))

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(frame, "event: update\ndata: "), "\n\n")), &event))
	assert.Equal(t, string(realtime.QueryActiveEmergencies), event["query"])
	rows := event["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "e-1", rows[0].(map[string]any)["id"])

	buf.Reset()
	require.NoError(t, writeUpdate(w, realtime.Update{Query: realtime.QueryStats, Err: errors.New("timeout")}))
	require.NoError(t, w.Flush())
	assert.Contains(t, buf.String(), `"error":"timeout"`)
}
