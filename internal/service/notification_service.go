package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/mail"
)

// NotificationService mails account holders about account events. Delivery is best effort
// and runs in the background so it never holds up the request that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
	timeout    time.Duration
	inflight   sync.WaitGroup
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger, timeout time.Duration) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handlePasswordChanged)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.UserPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.deliver(ctx, event, mail.Message{
		To:      p.Email,
		Subject: "Welcome",
		Body:    fmt.Sprintf("Hi %s,\n\nYour account has been created. You can now sign in with %s.\n", p.FirstName, p.Email),
	})
	return nil
}

func (n *NotificationService) handlePasswordChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.UserPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.deliver(ctx, event, mail.Message{
		To:      p.Email,
		Subject: "Your password was changed",
		Body: fmt.Sprintf("Hi %s,\n\nThe password on your account was changed at %s.\n"+
			"If this was not you, request a new reset code right away.\n",
			p.FirstName, event.Timestamp.Format(time.RFC1123)),
	})
	return nil
}

// Wait blocks until every queued notification has been sent or given up.
func (n *NotificationService) Wait() {
	n.inflight.Wait()
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg mail.Message) {
	ctx = context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Warn("notification not delivered",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}()
}
