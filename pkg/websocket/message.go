package websocket

import "time"

// Envelope - это "конверт", в котором мы отправляем наши сообщения.
// Он содержит тип сообщения, что позволяет фронтенду понять, что делать.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationPayload - уведомление об изменении оборудования или плана.
type NotificationPayload struct {
	Event       string    `json:"event"`
	EntityID    string    `json:"entityId"`
	EquipmentID string    `json:"equipmentId,omitempty"`
	Actor       string    `json:"actor"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}
