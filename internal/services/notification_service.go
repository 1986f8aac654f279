package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"petro-planning/internal/events"
	"petro-planning/pkg/eventbus"
)

// EventPublisher - то, что нужно сервису уведомлений от шины событий.
type EventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// NotificationServiceInterface - порт побочных уведомлений. Вызывается только
// после успешного коммита и никогда не влияет на результат операции.
type NotificationServiceInterface interface {
	EquipmentChanged(ctx context.Context, event events.EquipmentEvent)
	PlanChanged(ctx context.Context, event events.PlanEvent)
}

type eventNotificationService struct {
	bus    EventPublisher
	logger *zap.Logger
}

func NewNotificationService(bus EventPublisher, logger *zap.Logger) NotificationServiceInterface {
	return &eventNotificationService{bus: bus, logger: logger}
}

func (s *eventNotificationService) EquipmentChanged(ctx context.Context, event events.EquipmentEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.publish(ctx, event)
}

func (s *eventNotificationService) PlanChanged(ctx context.Context, event events.PlanEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.publish(ctx, event)
}

func (s *eventNotificationService) publish(ctx context.Context, event eventbus.Event) {
	if s.bus == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Сбой публикации события", zap.String("event", event.Name()), zap.Any("panic", p))
		}
	}()
	s.bus.Publish(ctx, event)
	s.logger.Debug("Событие опубликовано", zap.String("event", event.Name()))
}
