// Package notification fans emergency alerts out to every doctor over an external channel.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/domain"
	apperrors "github.com/spec-kit/hospital-ops/pkg/util/errorutil"
)

// Alert is the emergency being fanned out.
type Alert struct {
	EmergencyID string    `json:"emergencyId"`
	PatientName string    `json:"patientName,omitempty"`
	Location    string    `json:"location"`
	Condition   string    `json:"condition"`
	Priority    string    `json:"priority"`
	OccurredAt  time.Time `json:"timestamp"`
}

// AlertFromEmergency builds an alert for a stored emergency.
func AlertFromEmergency(e domain.Emergency) Alert {
	a := Alert{
		EmergencyID: e.ID,
		Location:    e.Location,
		Condition:   e.Condition,
		Priority:    e.Priority,
		OccurredAt:  e.CreatedAt,
	}
	if e.PatientName != nil {
		a.PatientName = *e.PatientName
	}
	return a
}

func (a Alert) priority() string {
	if strings.TrimSpace(a.Priority) == "" {
		return domain.DefaultEmergencyPriority
	}
	return a.Priority
}

func (a Alert) displayPatientName() string {
	if strings.TrimSpace(a.PatientName) == "" {
		return "Unknown"
	}
	return a.PatientName
}

// RecipientOutcome is the result of sending to one address.
type RecipientOutcome struct {
	Address string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DispatchResult summarises one fan-out.
type DispatchResult struct {
	EmergencyID     string             `json:"emergencyId"`
	TotalRecipients int                `json:"totalRecipients"`
	Outcomes        []RecipientOutcome `json:"outcomes"`
	SuccessfulCount int                `json:"successfulCount"`
}

// Success reports whether at least one recipient was reached. Partial delivery counts.
func (r *DispatchResult) Success() bool {
	return r != nil && r.SuccessfulCount > 0
}

// Delivered returns the addresses that accepted the message, in recipient order.
func (r *DispatchResult) Delivered() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, r.SuccessfulCount)
	for _, o := range r.Outcomes {
		if o.Success {
			out = append(out, o.Address)
		}
	}
	return out
}

// Summary is the human readable outcome line.
func (r *DispatchResult) Summary() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("Emergency notifications sent to %d of %d doctors", r.SuccessfulCount, r.TotalRecipients)
}

// RecipientSource lists the profiles that must be alerted.
type RecipientSource interface {
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
}

// ContactResolver maps a user to a delivery address. An empty address means none is on file.
type ContactResolver interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

// Recorder receives dispatch totals. *observability.Metrics satisfies it.
type Recorder interface {
	RecordDispatch(recipients, sent int)
}

// Options tune a Dispatcher.
type Options struct {
	// MaxWorkers bounds concurrent sends. 1 sends sequentially.
	MaxWorkers    int
	PublicBaseURL string
	Logger        *zap.Logger
	Recorder      Recorder
}

// Dispatcher resolves recipients and sends one message to each.
type Dispatcher struct {
	channel    Channel
	recipients RecipientSource
	contacts   ContactResolver
	maxWorkers int
	baseURL    string
	logger     *zap.Logger
	recorder   Recorder
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(channel Channel, recipients RecipientSource, contacts ContactResolver, opts Options) *Dispatcher {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Dispatcher{
		channel:    channel,
		recipients: recipients,
		contacts:   contacts,
		maxWorkers: opts.MaxWorkers,
		baseURL:    strings.TrimRight(opts.PublicBaseURL, "/"),
		logger:     opts.Logger,
		recorder:   opts.Recorder,
	}
}

// Dispatch sends alert to every doctor with a resolvable address.
//
// It fails with a configuration error before touching the store when the channel has
// no credential, and with a no-recipients error when nobody can be reached. Otherwise
// each send is attempted independently and the result records every outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) (*DispatchResult, error) {
	result := &DispatchResult{EmergencyID: alert.EmergencyID, Outcomes: []RecipientOutcome{}}

	if d.channel == nil || !d.channel.Configured() {
		return result, apperrors.NewConfigurationError("email service not configured")
	}

	addresses, err := d.resolveRecipients(ctx)
	if err != nil {
		return result, err
	}
	if len(addresses) == 0 {
		return result, apperrors.NewNoRecipientsError("no doctors found to notify")
	}

	body, err := RenderAlert(alert, d.baseURL)
	if err != nil {
		return result, apperrors.NewInternalError(fmt.Errorf("render alert: %w", err))
	}
	subject := Subject(alert)

	result.TotalRecipients = len(addresses)
	result.Outcomes = make([]RecipientOutcome, len(addresses))

	sem := make(chan struct{}, d.maxWorkers)
	var wg sync.WaitGroup
	for i, addr := range addresses {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			result.Outcomes[i] = d.sendOne(ctx, Message{To: addr, Subject: subject, HTML: body})
		}(i, addr)
	}
	wg.Wait()

	for _, o := range result.Outcomes {
		if o.Success {
			result.SuccessfulCount++
		}
	}
	if d.recorder != nil {
		d.recorder.RecordDispatch(result.TotalRecipients, result.SuccessfulCount)
	}

	d.logger.Info("emergency notifications dispatched",
		zap.String("emergency_id", alert.EmergencyID),
		zap.Int("recipients", result.TotalRecipients),
		zap.Int("sent", result.SuccessfulCount))
	return result, nil
}

// AsyncResult carries the outcome of DispatchAsync.
type AsyncResult struct {
	Result *DispatchResult
	Err    error
}

// DispatchAsync runs Dispatch in the background. The returned channel yields exactly one
// value and is then closed.
func (d *Dispatcher) DispatchAsync(ctx context.Context, alert Alert) <-chan AsyncResult {
	out := make(chan AsyncResult, 1)
	go func() {
		defer close(out)
		res, err := d.Dispatch(ctx, alert)
		out <- AsyncResult{Result: res, Err: err}
	}()
	return out
}

func (d *Dispatcher) sendOne(ctx context.Context, msg Message) RecipientOutcome {
	outcome := RecipientOutcome{Address: msg.To}
	if err := d.channel.Send(ctx, msg); err != nil {
		d.logger.Warn("emergency notification failed", zap.String("to", msg.To), zap.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (d *Dispatcher) resolveRecipients(ctx context.Context) ([]string, error) {
	doctors, err := d.recipients.ListByRole(ctx, domain.RoleDoctor)
	if err != nil {
		return nil, apperrors.NewStoreReadError("fetch doctors", err)
	}

	addresses := make([]string, 0, len(doctors))
	for _, doc := range doctors {
		addr, err := d.contacts.EmailForUser(ctx, doc.UserID)
		if err != nil {
			d.logger.Debug("skipping doctor without resolvable address", zap.String("user_id", doc.UserID), zap.Error(err))
			continue
		}
		addr = strings.TrimSpace(addr)
		if addr == "" {
			d.logger.Debug("skipping doctor without email", zap.String("user_id", doc.UserID))
			continue
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
