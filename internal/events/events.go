package events

import "time"

const (
	EquipmentCreated       = "equipment.created"
	EquipmentUpdated       = "equipment.updated"
	EquipmentDeleted       = "equipment.deleted"
	EquipmentStatusChanged = "equipment.status_changed"
	EquipmentImported      = "equipment.imported"

	ActivityAdded     = "activity.added"
	ActivityStarted   = "activity.started"
	ActivityCompleted = "activity.completed"

	PlanCreated = "plan.created"
	PlanUpdated = "plan.updated"
	PlanDeleted = "plan.deleted"
)

// EquipmentEvent - изменение оборудования или его активностей.
type EquipmentEvent struct {
	EventName   string
	EquipmentID string
	ActivityID  string
	Actor       string
	Message     string
	OccurredAt  time.Time
}

// Name - реализуем интерфейс eventbus.Event
func (e EquipmentEvent) Name() string { return e.EventName }

// PlanEvent - изменение плана. Публикуется только после коммита.
type PlanEvent struct {
	EventName         string
	PlanID            string
	EquipmentID       string
	// ResponsibleUserID - получатель личного уведомления, если известен.
	ResponsibleUserID string
	Actor             string
	Message           string
	OccurredAt        time.Time
}

func (e PlanEvent) Name() string { return e.EventName }
