package listeners

import (
	"context"

	"go.uber.org/zap"

	"petro-planning/internal/events"
	"petro-planning/internal/services"
	"petro-planning/pkg/eventbus"
	"petro-planning/pkg/websocket"
)

const (
	MessageTypeNotification = "notification"
	MessageTypePersonal     = "personal_notification"
)

// NotificationListener пересылает доменные события в WebSocket: всем
// клиентам и, для планов, лично ответственному.
type NotificationListener struct {
	wsNotificationService services.WebSocketNotificationServiceInterface
	logger                *zap.Logger
}

func NewNotificationListener(
	wsNotificationService services.WebSocketNotificationServiceInterface,
	logger *zap.Logger,
) *NotificationListener {
	return &NotificationListener{
		wsNotificationService: wsNotificationService,
		logger:                logger,
	}
}

func (l *NotificationListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.AllEvents, l.handle)
	l.logger.Info("NotificationListener подписан на все события")
}

func (l *NotificationListener) handle(ctx context.Context, event eventbus.Event) error {
	switch e := event.(type) {
	case events.EquipmentEvent:
		entityID := e.EquipmentID
		if e.ActivityID != "" {
			entityID = e.ActivityID
		}
		return l.wsNotificationService.Broadcast(websocket.NotificationPayload{
			Event:       e.EventName,
			EntityID:    entityID,
			EquipmentID: e.EquipmentID,
			Actor:       e.Actor,
			Message:     e.Message,
			CreatedAt:   e.OccurredAt,
		}, MessageTypeNotification)

	case events.PlanEvent:
		payload := websocket.NotificationPayload{
			Event:       e.EventName,
			EntityID:    e.PlanID,
			EquipmentID: e.EquipmentID,
			Actor:       e.Actor,
			Message:     e.Message,
			CreatedAt:   e.OccurredAt,
		}
		if err := l.wsNotificationService.Broadcast(payload, MessageTypeNotification); err != nil {
			return err
		}
		if e.ResponsibleUserID == "" || e.ResponsibleUserID == e.Actor {
			return nil
		}
		return l.wsNotificationService.SendNotification(e.ResponsibleUserID, payload, MessageTypePersonal)

	default:
		l.logger.Debug("Событие без обработчика уведомлений", zap.String("event", event.Name()))
		return nil
	}
}

