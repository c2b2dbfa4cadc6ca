package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hospital-ops/internal/events"
	"github.com/spec-kit/hospital-ops/internal/notification"
)

// Fanout is the emergency alert dispatcher.
type Fanout interface {
	Dispatch(ctx context.Context, alert notification.Alert) (*notification.DispatchResult, error)
	DispatchAsync(ctx context.Context, alert notification.Alert) <-chan notification.AsyncResult
}

// NotificationService reacts to domain events with outbound notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	fanout     Fanout
	logger     *zap.Logger
	timeout    time.Duration

	wg sync.WaitGroup
	// baseCtx outlives the request that created the emergency.
	baseCtx context.Context
}

// NewNotificationService creates the service. timeout bounds a single background fan-out.
func NewNotificationService(dispatcher events.Dispatcher, fanout Fanout, logger *zap.Logger, timeout time.Duration) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &NotificationService{
		dispatcher: dispatcher,
		fanout:     fanout,
		logger:     logger,
		timeout:    timeout,
		baseCtx:    context.Background(),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventEmergencyCreated, n.handleEmergencyCreated)
	n.dispatcher.Subscribe(events.EventEmergencyResolved, n.handleEmergencyResolved)
}

// SendEmergencyNotifications runs the fan-out synchronously for the dispatch endpoint.
func (n *NotificationService) SendEmergencyNotifications(ctx context.Context, alert notification.Alert) (*notification.DispatchResult, error) {
	return n.fanout.Dispatch(ctx, alert)
}

// Wait blocks until background fan-outs started so far have finished.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// handleEmergencyCreated starts the fan-out without holding up the creating request.
// The outcome is only logged; the creator sees new emergencies through the change feed.
func (n *NotificationService) handleEmergencyCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EmergencyCreatedPayload)
	if !ok {
		n.logger.Warn("EmergencyCreated without payload", zap.String("emergency_id", event.ResourceID))
		return nil
	}
	alert := notification.AlertFromEmergency(payload.Emergency)

	ctx, cancel := context.WithTimeout(n.baseCtx, n.timeout)
	results := n.fanout.DispatchAsync(ctx, alert)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		res, ok := <-results
		if !ok {
			return
		}
		if res.Err != nil {
			n.logger.Error("emergency fan-out failed",
				zap.String("emergency_id", alert.EmergencyID),
				zap.Error(res.Err))
			return
		}
		n.logger.Info(res.Result.Summary(),
			zap.String("emergency_id", alert.EmergencyID),
			zap.Bool("success", res.Result.Success()))
	}()
	return nil
}

func (n *NotificationService) handleEmergencyResolved(_ context.Context, event events.Event) error {
	source := ""
	if payload, ok := event.Payload.(events.EmergencyResolvedPayload); ok {
		source = payload.Source
	}
	n.logger.Info("EmergencyResolved", zap.String("emergency_id", event.ResourceID), zap.String("source", source))
	return nil
}
