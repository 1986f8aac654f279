package entities

import "time"

const (
	HistoryTypeStatusChange = "status_change"

	// HistoryReasonPlanDeleted - значение поля reason, которое читают внешние клиенты.
	HistoryReasonPlanDeleted = "Plan supprimé"
)

// EquipmentHistory - запись журнала. Хранится отдельно от оборудования и
// ссылается на него только по идентификатору.
type EquipmentHistory struct {
	ID                string           `json:"id"`
	EquipmentID       string           `json:"equipmentId"`
	Type              string           `json:"type"`
	Description       string           `json:"description"`
	FromDate          time.Time        `json:"fromDate"`
	ToDate            *time.Time       `json:"toDate,omitempty"`
	Location          *string          `json:"location,omitempty"`
	ResponsiblePerson *string          `json:"responsiblePerson,omitempty"`
	IsStatusChange    bool             `json:"isStatusChange"`
	FromStatus        *EquipmentStatus `json:"fromStatus,omitempty"`
	ToStatus          *EquipmentStatus `json:"toStatus,omitempty"`
	Reason            *string          `json:"reason,omitempty"`
	ActivityID        *string          `json:"activityId,omitempty"`
	CreatedBy         string           `json:"createdBy"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// HistoryKey - ключ корреляции: одна запись журнала на жизненный цикл активности.
type HistoryKey struct {
	ActivityID  string
	EquipmentID string
}

func (h EquipmentHistory) Key() (HistoryKey, bool) {
	if h.ActivityID == nil {
		return HistoryKey{}, false
	}
	return HistoryKey{ActivityID: *h.ActivityID, EquipmentID: h.EquipmentID}, true
}
