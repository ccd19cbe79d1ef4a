package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-orchestrator/internal/events"
)

// AuditService logs every pipeline transition published on the dispatcher.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to all pipeline events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClassified,
		events.EventIssueOpened,
		events.EventNotificationSent,
		events.EventEmailDrafted,
		events.EventEmailSent,
	} {
		a.dispatcher.Subscribe(eventType, a.handleEvent)
	}
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("pipeline event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	return nil
}
