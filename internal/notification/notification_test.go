package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/config"
	"github.com/spec-kit/hospital-ops/internal/domain"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

type fakeChannel struct {
	configured bool
	failFor    map[string]bool

	mu   sync.Mutex
	sent []Message
}

func (f *fakeChannel) Configured() bool { return f.configured }

func (f *fakeChannel) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.failFor[msg.To] {
		return errors.New("mailbox unavailable")
	}
	return nil
}

func (f *fakeChannel) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDirectory struct {
	doctors   []domain.Profile
	emails    map[string]string
	listErr   error
	listCalls atomic.Int32
}

func (f *fakeDirectory) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	f.listCalls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if role != domain.RoleDoctor {
		return nil, nil
	}
	return f.doctors, nil
}

func (f *fakeDirectory) EmailForUser(_ context.Context, userID string) (string, error) {
	return f.emails[userID], nil
}

func directoryWith(n int) *fakeDirectory {
	dir := &fakeDirectory{emails: map[string]string{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("doc-%d", i)
		dir.doctors = append(dir.doctors, domain.Profile{UserID: id, Name: "Dr " + id, Role: domain.RoleDoctor})
		dir.emails[id] = fmt.Sprintf("doc%d@hospital.test", i)
	}
	return dir
}

func chestPain() Alert {
	return Alert{
		EmergencyID: "em-1",
		Location:    "Ward 2",
		Condition:   "Chest pain",
		OccurredAt:  time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
}

func TestDispatch_AllRecipientsSucceed(t *testing.T) {
	ch := &fakeChannel{configured: true}
	d := NewDispatcher(ch, directoryWith(3), directoryWith(3), Options{PublicBaseURL: "https://ops.example/"})

	res, err := d.Dispatch(context.Background(), chestPain())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRecipients)
	assert.Equal(t, 3, res.SuccessfulCount)
	assert.True(t, res.Success())
	assert.Equal(t, "Emergency notifications sent to 3 of 3 doctors", res.Summary())
	assert.Equal(t, []string{"doc1@hospital.test", "doc2@hospital.test", "doc3@hospital.test"}, res.Delivered())

	require.Len(t, ch.sent, 3)
	msg := ch.sent[0]
	assert.Equal(t, "🚨 EMERGENCY ALERT - Chest pain", msg.Subject)
	assert.Contains(t, msg.HTML, "em-1")
	assert.Contains(t, msg.HTML, "Unknown")
	assert.Contains(t, msg.HTML, "Ward 2")
	assert.Contains(t, msg.HTML, "high")
	assert.Contains(t, msg.HTML, "https://ops.example/resolve-emergency?id=em-1")
}

func TestDispatch_OneFailureIsIsolated(t *testing.T) {
	ch := &fakeChannel{configured: true, failFor: map[string]bool{"doc2@hospital.test": true}}
	dir := directoryWith(3)
	d := NewDispatcher(ch, dir, dir, Options{})

	res, err := d.Dispatch(context.Background(), chestPain())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRecipients)
	assert.Equal(t, 2, res.SuccessfulCount)
	assert.True(t, res.Success())

	failed := res.Outcomes[1]
	assert.Equal(t, "doc2@hospital.test", failed.Address)
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.Error)
	assert.True(t, res.Outcomes[0].Success)
	assert.True(t, res.Outcomes[2].Success)
}

func TestDispatch_SuccessCountMatchesFailures(t *testing.T) {
	for _, workers := range []int{1, 4} {
		for n := 1; n <= 5; n++ {
			for k := 0; k <= n; k++ {
				t.Run(fmt.Sprintf("workers=%d/n=%d/k=%d", workers, n, k), func(t *testing.T) {
					dir := directoryWith(n)
					fail := map[string]bool{}
					for i := 1; i <= k; i++ {
						fail[fmt.Sprintf("doc%d@hospital.test", i)] = true
					}
					d := NewDispatcher(&fakeChannel{configured: true, failFor: fail}, dir, dir, Options{MaxWorkers: workers})

					res, err := d.Dispatch(context.Background(), chestPain())
					require.NoError(t, err)
					assert.Equal(t, n, res.TotalRecipients)
					assert.Equal(t, n-k, res.SuccessfulCount)
					assert.Equal(t, n-k > 0, res.Success())
					assert.Len(t, res.Outcomes, n)
				})
			}
		}
	}
}

func TestDispatch_SkipsDoctorsWithoutAddress(t *testing.T) {
	dir := directoryWith(3)
	dir.emails["doc-2"] = ""
	ch := &fakeChannel{configured: true}
	d := NewDispatcher(ch, dir, dir, Options{})

	res, err := d.Dispatch(context.Background(), chestPain())
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalRecipients)
	assert.Equal(t, 2, res.SuccessfulCount)
}

func TestDispatch_NoRecipients(t *testing.T) {
	ch := &fakeChannel{configured: true}
	dir := directoryWith(0)
	d := NewDispatcher(ch, dir, dir, Options{})

	res, err := d.Dispatch(context.Background(), chestPain())
	require.ErrorIs(t, err, apperrors.ErrNoRecipients)
	assert.False(t, res.Success())
	assert.Zero(t, res.SuccessfulCount)
	assert.Zero(t, ch.attempts())
}

func TestDispatch_UnconfiguredChannelFailsBeforeAnyWork(t *testing.T) {
	ch := &fakeChannel{configured: false}
	dir := directoryWith(3)
	d := NewDispatcher(ch, dir, dir, Options{})

	res, err := d.Dispatch(context.Background(), chestPain())
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
	assert.False(t, res.Success())
	assert.Zero(t, ch.attempts())
	assert.Zero(t, dir.listCalls.Load())
}

func TestDispatch_DirectoryFailure(t *testing.T) {
	dir := directoryWith(2)
	dir.listErr = errors.New("connection refused")
	d := NewDispatcher(&fakeChannel{configured: true}, dir, dir, Options{})

	_, err := d.Dispatch(context.Background(), chestPain())
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Contains(t, err.Error(), "fetch doctors")
}

func TestDispatchAsync_DeliversOneResult(t *testing.T) {
	dir := directoryWith(2)
	d := NewDispatcher(&fakeChannel{configured: true}, dir, dir, Options{})

	out := d.DispatchAsync(context.Background(), chestPain())
	select {
	case r := <-out:
		require.NoError(t, r.Err)
		assert.Equal(t, 2, r.Result.SuccessfulCount)
	case <-time.After(time.Second):
		t.Fatal("dispatch did not complete")
	}
	_, open := <-out
	assert.False(t, open)
}

func TestRenderAlert_EscapesAndUsesPatientName(t *testing.T) {
	a := chestPain()
	a.PatientName = "<b>Jane</b>"
	a.Priority = "medium"

	body, err := RenderAlert(a, "http://localhost:8080")
	require.NoError(t, err)
	assert.Contains(t, body, "&lt;b&gt;Jane&lt;/b&gt;")
	assert.Contains(t, body, "medium")
	assert.NotContains(t, body, "Unknown")
}

func TestAlertFromEmergency(t *testing.T) {
	name := "John Doe"
	a := AlertFromEmergency(domain.Emergency{ID: "e9", PatientName: &name, Location: "ER", Condition: "Stroke"})
	assert.Equal(t, "e9", a.EmergencyID)
	assert.Equal(t, "John Doe", a.PatientName)
	assert.Equal(t, "high", a.priority())
}

func TestResendChannel_Send(t *testing.T) {
	var got resendEmailRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	ch := NewResendChannel(config.NotificationConfig{
		EmailAPIKey: "re_test",
		EmailAPIURL: srv.URL,
		EmailFrom:   "Alerts <alerts@hospital.test>",
	}, zap.NewNop())
	require.True(t, ch.Configured())

	err := ch.Send(context.Background(), Message{To: "doc1@hospital.test", Subject: "s", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, []string{"doc1@hospital.test"}, got.To)
	assert.Equal(t, "Alerts <alerts@hospital.test>", got.From)
}

func TestResendChannel_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to address"}`))
	}))
	defer srv.Close()

	ch := NewResendChannel(config.NotificationConfig{EmailAPIKey: "re_test", EmailAPIURL: srv.URL}, nil)
	err := ch.Send(context.Background(), Message{To: "bad"})

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, http.StatusUnprocessableEntity, sendErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid to address")
}

func TestResendChannel_UnconfiguredWithoutKey(t *testing.T) {
	ch := NewResendChannel(config.NotificationConfig{EmailAPIURL: "http://localhost"}, nil)
	assert.False(t, ch.Configured())
}
