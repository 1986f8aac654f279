package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type ResponsiblePersonDTO struct {
	Name   string  `json:"name"             validate:"required,max=255"`
	Email  *string `json:"email,omitempty"  validate:"omitempty,email"`
	Phone  *string `json:"phone,omitempty"  validate:"omitempty,phone"`
	UserID *string `json:"userId,omitempty" validate:"omitempty,max=100"`
}

type CreatePlanDTO struct {
	Title             string               `json:"title"                    validate:"required,max=255"`
	Description       *string              `json:"description,omitempty"`
	StartDate         time.Time            `json:"startDate"                validate:"required"`
	EndDate           time.Time            `json:"endDate"                  validate:"required,gtefield=StartDate"`
	Type              string               `json:"type"                     validate:"required,plan_type"`
	CustomTypeName    *string              `json:"customTypeName,omitempty" validate:"omitempty,max=255"`
	ProjectID         *string              `json:"projectId,omitempty"      validate:"omitempty,uuid"`
	EquipmentID       *string              `json:"equipmentId,omitempty"    validate:"omitempty,uuid"`
	Location          *string              `json:"location,omitempty"       validate:"omitempty,max=255"`
	ResponsiblePerson ResponsiblePersonDTO `json:"responsiblePerson"`
	Notes             *string              `json:"notes,omitempty"`
}

// UpdatePlanDTO - частичное обновление. Для nullable-полей пустая строка
// очищает значение, отсутствие поля оставляет его без изменений.
type UpdatePlanDTO struct {
	Title             *string               `json:"title,omitempty"  validate:"omitempty,min=1,max=255"`
	Description       null.String           `json:"description"`
	StartDate         *time.Time            `json:"startDate,omitempty"`
	EndDate           *time.Time            `json:"endDate,omitempty"`
	Type              *string               `json:"type,omitempty"   validate:"omitempty,plan_type"`
	CustomTypeName    null.String           `json:"customTypeName"   validate:"omitempty,max=255"`
	Status            *string               `json:"status,omitempty" validate:"omitempty,plan_status"`
	ProjectID         null.String           `json:"projectId"        validate:"omitempty,uuid"`
	EquipmentID       null.String           `json:"equipmentId"      validate:"omitempty,uuid"`
	Location          null.String           `json:"location"         validate:"omitempty,max=255"`
	ResponsiblePerson *ResponsiblePersonDTO `json:"responsiblePerson,omitempty"`
	Notes             null.String           `json:"notes"`
}

type PlanFilterDTO struct {
	EquipmentID *string
	ProjectID   *string
	Type        *string
	Status      *string
	From        *time.Time
	To          *time.Time
	Search      string
	Page        int
	Limit       int
}

type AvailabilityQueryDTO struct {
	StartDate time.Time
	EndDate   time.Time
	Type      string
	ProjectID *string
}
