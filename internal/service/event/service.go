package event

import (
	"context"
	"encoding/json"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// Recorder writes domain events to the outbox. Recording is best effort:
// a failure is logged and never reaches the caller.
type Recorder interface {
	Record(ctx context.Context, eventType string, payload interface{})
}

type Service struct {
	outbox repository.OutboxRepository
	logger *logger.Logger
}

func NewService(outbox repository.OutboxRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{outbox: outbox, logger: log.WithComponent("events")}
}

func (s *Service) Record(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	event := &model.OutboxEvent{EventType: eventType, Payload: body}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(err, "failed to record event", "event_type", eventType)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, string, interface{}) {}
