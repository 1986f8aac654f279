package entities

import (
	"time"

	"petro-planning/pkg/types"
)

type PlanType string

const (
	PlanPlacement   PlanType = "placement"
	PlanMaintenance PlanType = "maintenance"
	PlanRepair      PlanType = "repair"
	PlanCustom      PlanType = "custom"
)

func (t PlanType) Valid() bool {
	switch t {
	case PlanPlacement, PlanMaintenance, PlanRepair, PlanCustom:
		return true
	}
	return false
}

// IsStandard - план проецируется в активность оборудования.
func (t PlanType) IsStandard() bool {
	return t.Valid() && t != PlanCustom
}

// ActivityType - тип активности, которую создаёт стандартный план.
func (t PlanType) ActivityType() ActivityType {
	return ActivityType(t)
}

type PlanStatus string

const (
	PlanScheduled  PlanStatus = "scheduled"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanCancelled  PlanStatus = "cancelled"
)

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanScheduled, PlanInProgress, PlanCompleted, PlanCancelled:
		return true
	}
	return false
}

func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanCancelled
}

var planTransitions = map[PlanStatus][]PlanStatus{
	PlanScheduled:  {PlanInProgress, PlanCancelled},
	PlanInProgress: {PlanCompleted, PlanCancelled},
}

// CanTransition: scheduled → in_progress → completed, cancelled из любого
// нетерминального состояния. Переход в то же состояние разрешён.
func (s PlanStatus) CanTransition(to PlanStatus) bool {
	if s == to {
		return true
	}
	for _, next := range planTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ActivityStatus - статус активности, соответствующий статусу плана.
func (s PlanStatus) ActivityStatus() ActivityStatus {
	switch s {
	case PlanInProgress:
		return ActivityInProgress
	case PlanCompleted:
		return ActivityCompleted
	case PlanCancelled:
		return ActivityCancelled
	default:
		return ActivityScheduled
	}
}

// PlanStatusFor - обратное соответствие: статус плана, который должен
// отражать статус его активности.
func PlanStatusFor(s ActivityStatus) PlanStatus {
	switch s {
	case ActivityInProgress:
		return PlanInProgress
	case ActivityCompleted:
		return PlanCompleted
	case ActivityCancelled:
		return PlanCancelled
	default:
		return PlanScheduled
	}
}

type ResponsiblePerson struct {
	Name   string  `json:"name"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	UserID *string `json:"userId,omitempty"`
}

type Plan struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Description       *string           `json:"description,omitempty"`
	StartDate         time.Time         `json:"startDate"`
	EndDate           time.Time         `json:"endDate"`
	Type              PlanType          `json:"type"`
	CustomTypeName    *string           `json:"customTypeName,omitempty"`
	Status            PlanStatus        `json:"status"`
	ProjectID         *string           `json:"projectId,omitempty"`
	EquipmentID       *string           `json:"equipmentId,omitempty"`
	ActivityID        *string           `json:"activityId,omitempty"`
	Location          *string           `json:"location,omitempty"`
	ResponsiblePerson ResponsiblePerson `json:"responsiblePerson"`
	Notes             *string           `json:"notes,omitempty"`
	CreatedBy         string            `json:"createdBy"`
	UpdatedBy         *string           `json:"updatedBy,omitempty"`

	types.SoftDelete
	types.BaseEntity
}

// EquipmentRef возвращает идентификатор оборудования или пустую строку.
func (p Plan) EquipmentRef() string {
	if p.EquipmentID == nil {
		return ""
	}
	return *p.EquipmentID
}

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
