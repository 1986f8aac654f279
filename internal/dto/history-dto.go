package dto

import (
	"time"

	"petro-planning/internal/entities"
)

// HistoryEntryDTO - данные для записи в журнал оборудования.
type HistoryEntryDTO struct {
	EquipmentID       string
	Type              string
	Description       string
	FromDate          time.Time
	ToDate            *time.Time
	Location          *string
	ResponsiblePerson *string
	IsStatusChange    bool
	FromStatus        *entities.EquipmentStatus
	ToStatus          *entities.EquipmentStatus
	Reason            *string
	ActivityID        *string
}

// ActivityDataDTO - поля новой или изменяемой активности.
type ActivityDataDTO struct {
	Type              entities.ActivityType
	StartDate         time.Time
	EndDate           *time.Time
	Description       string
	Location          string
	ResponsiblePerson string
}

type ImportResultDTO struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
	File    string   `json:"file,omitempty"`
}
