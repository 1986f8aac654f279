package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
)

// ActivityLedgerInterface - операции над списком активностей внутри
// загруженного (и заблокированного) агрегата оборудования. Вызываются только
// внутри транзакции; агрегат в памяти и строки в БД меняются вместе.
type ActivityLedgerInterface interface {
	PushActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, data dto.ActivityDataDTO, createdBy string) (*entities.Activity, error)
	UpdateActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID string, data dto.ActivityDataDTO, updatedBy string) (*entities.Activity, error)
	CancelActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID, updatedBy string) (*entities.Activity, error)
	SetActivityStatus(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID string, status entities.ActivityStatus, endDate *time.Time, updatedBy string) (*entities.Activity, error)
}

type ActivityLedger struct {
	repo   repositories.ActivityRepositoryInterface
	logger *zap.Logger
}

func NewActivityLedger(repo repositories.ActivityRepositoryInterface, logger *zap.Logger) ActivityLedgerInterface {
	return &ActivityLedger{repo: repo, logger: logger}
}

func validateActivityData(data dto.ActivityDataDTO) error {
	fields := map[string]string{}
	if !data.Type.Valid() {
		fields["type"] = "activity_type"
	}
	if data.StartDate.IsZero() {
		fields["startDate"] = "required"
	}
	if data.EndDate != nil && data.EndDate.Before(data.StartDate) {
		fields["endDate"] = "gtefield=startDate"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("некорректные данные активности", fields)
	}
	return nil
}

// PushActivity добавляет активность в конец списка со статусом SCHEDULED.
// Идентификатор назначается до вставки, перечитывать агрегат не нужно.
func (l *ActivityLedger) PushActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, data dto.ActivityDataDTO, createdBy string) (*entities.Activity, error) {
	if err := validateActivityData(data); err != nil {
		return nil, err
	}

	now := timeNow()
	activity := entities.Activity{
		ID:                uuid.NewString(),
		EquipmentID:       equipment.ID,
		Position:          equipment.NextPosition(),
		Type:              data.Type,
		StartDate:         data.StartDate,
		EndDate:           data.EndDate,
		Description:       data.Description,
		Location:          data.Location,
		ResponsiblePerson: data.ResponsiblePerson,
		Status:            entities.ActivityScheduled,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := l.repo.InsertInTx(ctx, tx, &activity); err != nil {
		l.logger.Error("Не удалось добавить активность",
			zap.String("equipmentID", equipment.ID), zap.Error(err))
		return nil, err
	}
	equipment.Activities = append(equipment.Activities, activity)

	created := activity
	return &created, nil
}

func (l *ActivityLedger) find(equipment *entities.Equipment, activityID string) (*entities.Activity, error) {
	_, activity := equipment.FindActivity(activityID)
	if activity == nil {
		return nil, apperrors.NewNotFoundError("Активность", activityID)
	}
	return activity, nil
}

func (l *ActivityLedger) persist(ctx context.Context, tx pgx.Tx, activity *entities.Activity, updatedBy string) (*entities.Activity, error) {
	activity.UpdatedBy = &updatedBy
	activity.UpdatedAt = timeNow()
	if err := l.repo.UpdateInTx(ctx, tx, activity); err != nil {
		l.logger.Error("Не удалось сохранить активность",
			zap.String("activityID", activity.ID), zap.Error(err))
		return nil, err
	}
	updated := *activity
	return &updated, nil
}

// UpdateActivity меняет активность на месте; неизвестный id - NotFoundError.
func (l *ActivityLedger) UpdateActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID string, data dto.ActivityDataDTO, updatedBy string) (*entities.Activity, error) {
	if err := validateActivityData(data); err != nil {
		return nil, err
	}
	activity, err := l.find(equipment, activityID)
	if err != nil {
		return nil, err
	}

	activity.Type = data.Type
	activity.StartDate = data.StartDate
	activity.EndDate = data.EndDate
	activity.Description = data.Description
	activity.Location = data.Location
	activity.ResponsiblePerson = data.ResponsiblePerson
	return l.persist(ctx, tx, activity, updatedBy)
}

// CancelActivity помечает активность CANCELLED; запись остаётся в списке.
func (l *ActivityLedger) CancelActivity(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID, updatedBy string) (*entities.Activity, error) {
	return l.SetActivityStatus(ctx, tx, equipment, activityID, entities.ActivityCancelled, nil, updatedBy)
}

// SetActivityStatus меняет статус и, если передана, дату окончания.
func (l *ActivityLedger) SetActivityStatus(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID string, status entities.ActivityStatus, endDate *time.Time, updatedBy string) (*entities.Activity, error) {
	activity, err := l.find(equipment, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Status == status && endDate == nil {
		unchanged := *activity
		return &unchanged, nil
	}
	if endDate != nil {
		if endDate.Before(activity.StartDate) {
			return nil, apperrors.NewFieldValidationError("дата окончания раньше даты начала",
				map[string]string{"endDate": "gtefield=startDate"})
		}
		activity.EndDate = endDate
	}
	activity.Status = status
	return l.persist(ctx, tx, activity, updatedBy)
}
