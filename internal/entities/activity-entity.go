package entities

import "time"

type ActivityType string

const (
	ActivityPlacement   ActivityType = "placement"
	ActivityOperation   ActivityType = "operation"
	ActivityMaintenance ActivityType = "maintenance"
	ActivityRepair      ActivityType = "repair"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityPlacement, ActivityOperation, ActivityMaintenance, ActivityRepair:
		return true
	}
	return false
}

type ActivityStatus string

const (
	ActivityScheduled  ActivityStatus = "SCHEDULED"
	ActivityInProgress ActivityStatus = "IN_PROGRESS"
	ActivityCompleted  ActivityStatus = "COMPLETED"
	ActivityCancelled  ActivityStatus = "CANCELLED"
)

// Activity - элемент встроенного списка активностей оборудования.
// Принадлежит только своему Equipment; Plan и история хранят лишь пару
// (equipmentId, activityId).
type Activity struct {
	ID                string         `json:"id"`
	EquipmentID       string         `json:"equipmentId"`
	Position          int            `json:"-"`
	Type              ActivityType   `json:"type"`
	StartDate         time.Time      `json:"startDate"`
	EndDate           *time.Time     `json:"endDate,omitempty"`
	Description       string         `json:"description"`
	Location          string         `json:"location"`
	ResponsiblePerson string         `json:"responsiblePerson"`
	Status            ActivityStatus `json:"status"`
	CreatedBy         string         `json:"createdBy"`
	UpdatedBy         *string        `json:"updatedBy,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// IsCancelled - отменённые активности остаются в списке ради истории.
func (a Activity) IsCancelled() bool {
	return a.Status == ActivityCancelled
}

// IsLive - активность ещё занимает оборудование.
func (a Activity) IsLive() bool {
	return a.Status == ActivityScheduled || a.Status == ActivityInProgress
}

// Overlaps - инклюзивная проверка пересечения с [start, end].
// Отсутствующая дата окончания означает открытый интервал.
func (a Activity) Overlaps(start time.Time, end *time.Time) bool {
	if end != nil && a.StartDate.After(*end) {
		return false
	}
	if a.EndDate != nil && a.EndDate.Before(start) {
		return false
	}
	return true
}
