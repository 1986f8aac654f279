package services

import (
	"time"

	"petro-planning/internal/entities"
	apperrors "petro-planning/pkg/errors"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// HasScheduleConflict - true, если хотя бы одна неотменённая активность
// пересекается с [start, end] (границы включительно).
func HasScheduleConflict(activities []entities.Activity, start time.Time, end *time.Time) bool {
	return hasScheduleConflictExcept(activities, start, end, "")
}

// hasScheduleConflictExcept не учитывает активность exceptID: при переносе
// дат план не конфликтует сам с собой.
func hasScheduleConflictExcept(activities []entities.Activity, start time.Time, end *time.Time, exceptID string) bool {
	for _, a := range activities {
		if a.IsCancelled() || (exceptID != "" && a.ID == exceptID) {
			continue
		}
		if a.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// statusGate: тип работ → статусы оборудования, при которых работы запрещены.
// placement - особый случай, допускает только AVAILABLE.
var statusGate = map[string][]entities.EquipmentStatus{
	string(entities.ActivityMaintenance): {entities.EquipmentRepair, entities.EquipmentOutOfService},
	string(entities.ActivityRepair):      {entities.EquipmentOutOfService},
}

// CheckStatusGate проверяет, можно ли запланировать работы вида kind
// на оборудовании в статусе status.
func CheckStatusGate(kind string, status entities.EquipmentStatus) error {
	if kind == string(entities.ActivityPlacement) {
		if status != entities.EquipmentAvailable {
			return apperrors.NewInvalidStateError(
				"оборудование в статусе %s недоступно для размещения: требуется %s", status, entities.EquipmentAvailable)
		}
		return nil
	}
	for _, blocked := range statusGate[kind] {
		if status == blocked {
			return apperrors.NewInvalidStateError(
				"оборудование в статусе %s не может быть назначено на работы типа %s", status, kind)
		}
	}
	return nil
}

// AllowedStatuses - статусы, проходящие ворота для kind; nil означает "любой".
func AllowedStatuses(kind string) []entities.EquipmentStatus {
	if kind == string(entities.ActivityPlacement) {
		return []entities.EquipmentStatus{entities.EquipmentAvailable}
	}
	blocked, ok := statusGate[kind]
	if !ok {
		return nil
	}
	allowed := make([]entities.EquipmentStatus, 0, len(entities.AllEquipmentStatuses))
	for _, s := range entities.AllEquipmentStatuses {
		if !containsStatus(blocked, s) {
			allowed = append(allowed, s)
		}
	}
	return allowed
}

func containsStatus(list []entities.EquipmentStatus, s entities.EquipmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// StatusAfterActivity - статус оборудования, который следует выставить после
// изменения активности. Второе значение false означает "статус не меняется".
func StatusAfterActivity(activityType entities.ActivityType, status entities.ActivityStatus, hasEnd bool) (entities.EquipmentStatus, bool) {
	if activityType == entities.ActivityMaintenance && status == entities.ActivityCompleted && hasEnd {
		return entities.EquipmentAvailable, true
	}
	if !hasEnd && (status == entities.ActivityScheduled || status == entities.ActivityInProgress) {
		switch activityType {
		case entities.ActivityMaintenance:
			return entities.EquipmentRepair, true
		case entities.ActivityOperation:
			return entities.EquipmentInUse, true
		}
	}
	return "", false
}
