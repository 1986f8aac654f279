package entities

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/types"
)

type EquipmentStatus string

const (
	EquipmentAvailable    EquipmentStatus = "AVAILABLE"
	EquipmentInUse        EquipmentStatus = "IN_USE"
	EquipmentMaintenance  EquipmentStatus = "MAINTENANCE"
	EquipmentRepair       EquipmentStatus = "REPAIR"
	EquipmentOutOfService EquipmentStatus = "OUT_OF_SERVICE"
)

// AllEquipmentStatuses в порядке жизненного цикла.
var AllEquipmentStatuses = []EquipmentStatus{
	EquipmentAvailable,
	EquipmentInUse,
	EquipmentMaintenance,
	EquipmentRepair,
	EquipmentOutOfService,
}

// legacyEquipmentStatuses - старые строковые значения, которые ещё приходят
// от внешних клиентов и лежат в исторических данных.
var legacyEquipmentStatuses = map[string]EquipmentStatus{
	"disponible":             EquipmentAvailable,
	"disponible_bon_etat":    EquipmentAvailable,
	"available":              EquipmentAvailable,
	"working_non_disponible": EquipmentInUse,
	"en_utilisation":         EquipmentInUse,
	"in_use":                 EquipmentInUse,
	"working":                EquipmentInUse,
	"maintenance":            EquipmentMaintenance,
	"en_maintenance":         EquipmentMaintenance,
	"under_maintenance":      EquipmentMaintenance,
	"on_repair":              EquipmentRepair,
	"en_reparation":          EquipmentRepair,
	"repair":                 EquipmentRepair,
	"non_disponible":         EquipmentRepair,
	"hors_service":           EquipmentOutOfService,
	"out_of_service":         EquipmentOutOfService,
}

// NormalizeEquipmentStatus приводит любое допустимое (в том числе устаревшее)
// значение к каноническому. Повторная нормализация ничего не меняет.
func NormalizeEquipmentStatus(raw string) (EquipmentStatus, error) {
	s := strings.TrimSpace(raw)
	for _, canonical := range AllEquipmentStatuses {
		if strings.EqualFold(s, string(canonical)) {
			return canonical, nil
		}
	}
	if canonical, ok := legacyEquipmentStatuses[strings.ToLower(s)]; ok {
		return canonical, nil
	}
	return "", apperrors.NewValidationError("неизвестный статус оборудования: '%s'", raw)
}

func (s *EquipmentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	normalized, err := NormalizeEquipmentStatus(raw)
	if err != nil {
		return err
	}
	*s = normalized
	return nil
}

// ComputeVolume - объём в м³ по размерам в сантиметрах.
func ComputeVolume(height, width, length float64) float64 {
	return height * width * length / 1e6
}

type Dimensions struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Weight float64 `json:"weight"`
	Volume float64 `json:"volume"`
}

// Recompute пересчитывает производный объём.
func (d *Dimensions) Recompute() {
	d.Volume = ComputeVolume(d.Height, d.Width, d.Length)
}

type OperatingConditions struct {
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
}

type Equipment struct {
	ID                  string              `json:"id"`
	Reference           string              `json:"reference"`
	Matricule           string              `json:"matricule"`
	Name                string              `json:"name"`
	Dimensions          Dimensions          `json:"dimensions"`
	OperatingConditions OperatingConditions `json:"operatingConditions"`
	Location            string              `json:"location"`
	Status              EquipmentStatus     `json:"status"`
	Activities          []Activity          `json:"activities"`
	CreatedBy           string              `json:"createdBy"`

	types.BaseEntity
}

// FindActivity возвращает индекс и указатель на активность внутри агрегата.
func (e *Equipment) FindActivity(activityID string) (int, *Activity) {
	for i := range e.Activities {
		if e.Activities[i].ID == activityID {
			return i, &e.Activities[i]
		}
	}
	return -1, nil
}

// NextPosition - позиция для новой активности в конце списка.
func (e *Equipment) NextPosition() int {
	next := 0
	for _, a := range e.Activities {
		if a.Position >= next {
			next = a.Position + 1
		}
	}
	return next
}

// Touch выставляет отметки времени перед записью.
func (e *Equipment) Touch(now time.Time) {
	if e.CreatedAt == nil {
		e.CreatedAt = &now
	}
	e.UpdatedAt = &now
}
