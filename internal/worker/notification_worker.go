package worker

import (
	"context"
	"fmt"

	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartStorageJanitor removes stored report files once their case is deleted.
func StartStorageJanitor(dispatcher events.Dispatcher, reports *service.ReportService) {
	if dispatcher == nil || reports == nil {
		return
	}
	dispatcher.Subscribe(events.EventCaseDeleted, func(ctx context.Context, event events.Event) error {
		p, ok := event.Payload.(events.CaseDeletedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
		}
		reports.RemoveFiles(context.WithoutCancel(ctx), p.ReportFiles)
		return nil
	})
}
