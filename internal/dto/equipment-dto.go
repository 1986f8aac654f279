package dto

import "time"

type DimensionsDTO struct {
	Height *float64 `json:"height" validate:"required,gt=0"`
	Width  *float64 `json:"width"  validate:"required,gt=0"`
	Length *float64 `json:"length" validate:"required,gt=0"`
	Weight *float64 `json:"weight" validate:"required,gte=0"`
}

type OperatingConditionsDTO struct {
	Temperature *float64 `json:"temperature" validate:"required"`
	Pressure    *float64 `json:"pressure"    validate:"required"`
}

type CreateEquipmentDTO struct {
	Name                string                  `json:"name"                validate:"required,max=255"`
	Reference           string                  `json:"reference"           validate:"required,max=100"`
	Matricule           string                  `json:"matricule"           validate:"required,max=100"`
	Dimensions          *DimensionsDTO          `json:"dimensions"          validate:"required"`
	OperatingConditions *OperatingConditionsDTO `json:"operatingConditions" validate:"required"`
	Location            string                  `json:"location"            validate:"required,max=255"`
	Status              *string                 `json:"status,omitempty"    validate:"omitempty,equipment_status"`
}

type UpdateDimensionsDTO struct {
	Height *float64 `json:"height,omitempty" validate:"omitempty,gt=0"`
	Width  *float64 `json:"width,omitempty"  validate:"omitempty,gt=0"`
	Length *float64 `json:"length,omitempty" validate:"omitempty,gt=0"`
	Weight *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
}

type UpdateOperatingConditionsDTO struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

type UpdateEquipmentDTO struct {
	Name                *string                       `json:"name,omitempty"                validate:"omitempty,min=1,max=255"`
	Reference           *string                       `json:"reference,omitempty"           validate:"omitempty,min=1,max=100"`
	Matricule           *string                       `json:"matricule,omitempty"           validate:"omitempty,min=1,max=100"`
	Dimensions          *UpdateDimensionsDTO          `json:"dimensions,omitempty"`
	OperatingConditions *UpdateOperatingConditionsDTO `json:"operatingConditions,omitempty"`
	Location            *string                       `json:"location,omitempty"            validate:"omitempty,min=1,max=255"`
	Status              *string                       `json:"status,omitempty"              validate:"omitempty,equipment_status"`
}

type ChangeEquipmentStatusDTO struct {
	Status string  `json:"status" validate:"required,equipment_status"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

// CompleteActivityDTO - завершение активности; без endDate берётся текущее время.
type CompleteActivityDTO struct {
	EndDate *time.Time `json:"endDate,omitempty"`
}

// CreateActivityDTO - ручное добавление активности к оборудованию, без плана.
type CreateActivityDTO struct {
	Type              string     `json:"type"                        validate:"required,activity_type"`
	StartDate         time.Time  `json:"startDate"                   validate:"required"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	Description       string     `json:"description"                 validate:"max=1000"`
	Location          string     `json:"location"                    validate:"max=255"`
	ResponsiblePerson string     `json:"responsiblePerson"           validate:"max=255"`
}
