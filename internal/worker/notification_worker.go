package worker

import (
	"context"

	"github.com/spec-kit/hospital-ops/internal/service"
)

// StartNotificationWorker registers the emergency fan-out handlers right away and returns
// a runner that, once its context ends, waits for fan-outs still in flight.
func StartNotificationWorker(notificationService *service.NotificationService) Runner {
	if notificationService == nil {
		return RunnerFunc(func(context.Context) error { return nil })
	}
	notificationService.RegisterHandlers()
	return RunnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		notificationService.Wait()
		return nil
	})
}
