package services

import (
	"go.uber.org/zap"

	"petro-planning/pkg/websocket"
)

// WebSocketNotificationServiceInterface - доставка уведомлений подключённым клиентам.
type WebSocketNotificationServiceInterface interface {
	Broadcast(payload interface{}, messageType string) error
	SendNotification(userID string, payload interface{}, messageType string) error
}

type WebSocketNotificationService struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewWebSocketNotificationService(hub *websocket.Hub, logger *zap.Logger) WebSocketNotificationServiceInterface {
	return &WebSocketNotificationService{
		hub:    hub,
		logger: logger,
	}
}

func (s *WebSocketNotificationService) Broadcast(payload interface{}, messageType string) error {
	s.logger.Debug("Рассылка WebSocket-уведомления", zap.String("type", messageType))
	return s.hub.Broadcast(payload, messageType)
}

// Метод, который просто "пробрасывает" вызов в Hub
func (s *WebSocketNotificationService) SendNotification(userID string, payload interface{}, messageType string) error {
	s.logger.Info("Отправка WebSocket-уведомления",
		zap.String("userID", userID),
		zap.String("type", messageType),
	)
	return s.hub.SendMessageToUser(userID, payload, messageType)
}
