package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/events"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/utils"
)

// ActivityServiceInterface - жизненный цикл активностей оборудования вне планов.
type ActivityServiceInterface interface {
	AddActivity(ctx context.Context, equipmentID string, data dto.CreateActivityDTO) (*entities.Activity, error)
	StartActivity(ctx context.Context, equipmentID, activityID string) (*entities.Activity, error)
	CompleteActivity(ctx context.Context, equipmentID, activityID string, data dto.CompleteActivityDTO) (*entities.Activity, error)
}

type ActivityService struct {
	*BaseService
	txManager     repositories.TxManagerInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	planRepo      repositories.PlanRepositoryInterface
	ledger        ActivityLedgerInterface
	history       EquipmentHistoryServiceInterface
	notifier      NotificationServiceInterface
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewActivityService(
	base *BaseService,
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	planRepo repositories.PlanRepositoryInterface,
	ledger ActivityLedgerInterface,
	history EquipmentHistoryServiceInterface,
	notifier NotificationServiceInterface,
	validate *validator.Validate,
	logger *zap.Logger,
) *ActivityService {
	return &ActivityService{
		BaseService:   base,
		txManager:     txManager,
		equipmentRepo: equipmentRepo,
		planRepo:      planRepo,
		ledger:        ledger,
		history:       history,
		notifier:      notifier,
		validate:      validate,
		logger:        logger,
	}
}

// activityHistoryEntry - запись журнала, скоррелированная с активностью.
func activityHistoryEntry(equipment *entities.Equipment, activity *entities.Activity, description string) dto.HistoryEntryDTO {
	return dto.HistoryEntryDTO{
		EquipmentID:       equipment.ID,
		Type:              string(activity.Type),
		Description:       description,
		FromDate:          activity.StartDate,
		ToDate:            activity.EndDate,
		Location:          utils.NonEmptyPtr(activity.Location),
		ResponsiblePerson: utils.NonEmptyPtr(activity.ResponsiblePerson),
		ActivityID:        &activity.ID,
	}
}

func activityKey(equipment *entities.Equipment, activity *entities.Activity) entities.HistoryKey {
	return entities.HistoryKey{ActivityID: activity.ID, EquipmentID: equipment.ID}
}

// applyActivityStatusEffect выставляет статус оборудования по результату
// изменения активности и пишет запись об изменении статуса.
func applyActivityStatusEffect(
	ctx context.Context,
	tx pgx.Tx,
	repo repositories.EquipmentRepositoryInterface,
	history EquipmentHistoryServiceInterface,
	equipment *entities.Equipment,
	activity *entities.Activity,
	actor string,
) (bool, error) {
	next, ok := StatusAfterActivity(activity.Type, activity.Status, activity.EndDate != nil)
	if !ok {
		return false, nil
	}
	reason := fmt.Sprintf("Активность %s (%s): %s", activity.Type, formatRange(activity.StartDate, activity.EndDate), activity.Status)
	return recordStatusChange(ctx, tx, repo, history, equipment, next, &reason, actor)
}

func (s *ActivityService) lockEquipment(ctx context.Context, tx pgx.Tx, equipmentID string) (*entities.Equipment, error) {
	equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, equipmentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Оборудование", equipmentID)
	}
	return equipment, err
}

func (s *ActivityService) AddActivity(ctx context.Context, equipmentID string, data dto.CreateActivityDTO) (*entities.Activity, error) {
	if err := parseID(equipmentID); err != nil {
		return nil, err
	}
	data.Type = strings.ToLower(strings.TrimSpace(data.Type))
	if err := validateStruct(s.validate, data); err != nil {
		return nil, err
	}

	activityData := dto.ActivityDataDTO{
		Type:              entities.ActivityType(data.Type),
		StartDate:         data.StartDate.UTC(),
		EndDate:           data.EndDate,
		Description:       strings.TrimSpace(data.Description),
		Location:          strings.TrimSpace(data.Location),
		ResponsiblePerson: strings.TrimSpace(data.ResponsiblePerson),
	}
	actor := utils.GetUserIDFromCtx(ctx)

	var created *entities.Activity
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.lockEquipment(ctx, tx, equipmentID)
		if err != nil {
			return err
		}
		if err := CheckStatusGate(string(activityData.Type), equipment.Status); err != nil {
			return err
		}
		if HasScheduleConflict(equipment.Activities, activityData.StartDate, activityData.EndDate) {
			return apperrors.NewConflictError("оборудование %s уже занято в период %s",
				equipment.Reference, formatRange(activityData.StartDate, activityData.EndDate))
		}
		if activityData.Location == "" {
			activityData.Location = equipment.Location
		}

		activity, err := s.ledger.PushActivity(ctx, tx, equipment, activityData, actor)
		if err != nil {
			return err
		}
		description := activity.Description
		if description == "" {
			description = fmt.Sprintf("Активность %s запланирована", activity.Type)
		}
		if _, err := s.history.Append(ctx, tx, activityHistoryEntry(equipment, activity, description), actor); err != nil {
			return err
		}
		if _, err := applyActivityStatusEffect(ctx, tx, s.equipmentRepo, s.history, equipment, activity, actor); err != nil {
			return err
		}
		created = activity
		return nil
	})
	if err != nil {
		s.logger.Warn("Не удалось добавить активность",
			zap.String("equipmentID", equipmentID), zap.String("type", data.Type), zap.Error(err))
		return nil, err
	}

	s.InvalidateEquipment(ctx, equipmentID)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   events.ActivityAdded,
		EquipmentID: equipmentID,
		ActivityID:  created.ID,
		Actor:       actor,
		Message:     fmt.Sprintf("Запланирована активность %s: %s", created.Type, formatRange(created.StartDate, created.EndDate)),
	})
	s.logger.Info("Активность добавлена",
		zap.String("equipmentID", equipmentID), zap.String("activityID", created.ID))
	return created, nil
}

func (s *ActivityService) StartActivity(ctx context.Context, equipmentID, activityID string) (*entities.Activity, error) {
	return s.transition(ctx, equipmentID, activityID, entities.ActivityInProgress, nil, events.ActivityStarted)
}

func (s *ActivityService) CompleteActivity(ctx context.Context, equipmentID, activityID string, data dto.CompleteActivityDTO) (*entities.Activity, error) {
	return s.transition(ctx, equipmentID, activityID, entities.ActivityCompleted, data.EndDate, events.ActivityCompleted)
}

func (s *ActivityService) transition(
	ctx context.Context,
	equipmentID, activityID string,
	to entities.ActivityStatus,
	endDate *time.Time,
	eventName string,
) (*entities.Activity, error) {
	if err := parseID(equipmentID); err != nil {
		return nil, err
	}
	if err := parseID(activityID); err != nil {
		return nil, err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var updated *entities.Activity
	var plan *entities.Plan
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// План блокируется раньше оборудования, в том же порядке, что и при правке плана.
		owner, err := s.planRepo.FindByActivityForUpdateInTx(ctx, tx, activityID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		plan = owner

		equipment, err := s.lockEquipment(ctx, tx, equipmentID)
		if err != nil {
			return err
		}
		_, current := equipment.FindActivity(activityID)
		if current == nil {
			return apperrors.NewNotFoundError("Активность", activityID)
		}

		switch to {
		case entities.ActivityInProgress:
			if current.Status != entities.ActivityScheduled {
				return apperrors.NewInvalidStateError("активность в статусе %s нельзя начать", current.Status)
			}
		case entities.ActivityCompleted:
			if !current.IsLive() {
				return apperrors.NewInvalidStateError("активность в статусе %s нельзя завершить", current.Status)
			}
			if endDate == nil && current.EndDate == nil {
				now := timeNow()
				endDate = &now
			}
		}

		activity, err := s.ledger.SetActivityStatus(ctx, tx, equipment, activityID, to, endDate, actor)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Активность %s: %s", activity.Type, activity.Status)
		if activity.Description != "" {
			description = activity.Description + " (" + string(activity.Status) + ")"
		}
		if _, err := s.history.Reconcile(ctx, tx, activityKey(equipment, activity), activityHistoryEntry(equipment, activity, description), actor); err != nil {
			return err
		}
		if _, err := applyActivityStatusEffect(ctx, tx, s.equipmentRepo, s.history, equipment, activity, actor); err != nil {
			return err
		}
		if plan != nil {
			now := timeNow()
			plan.Status = entities.PlanStatusFor(activity.Status)
			plan.UpdatedBy = &actor
			plan.UpdatedAt = &now
			if err := s.planRepo.UpdateInTx(ctx, tx, plan); err != nil {
				return err
			}
		}
		updated = activity
		return nil
	})
	if err != nil {
		s.logger.Warn("Не удалось изменить статус активности",
			zap.String("equipmentID", equipmentID), zap.String("activityID", activityID),
			zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}

	s.InvalidateEquipment(ctx, equipmentID)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   eventName,
		EquipmentID: equipmentID,
		ActivityID:  activityID,
		Actor:       actor,
		Message:     fmt.Sprintf("Активность %s: %s", updated.Type, updated.Status),
	})
	if plan != nil {
		s.notifier.PlanChanged(ctx, events.PlanEvent{
			EventName:         events.PlanUpdated,
			PlanID:            plan.ID,
			EquipmentID:       plan.EquipmentRef(),
			ResponsibleUserID: utils.SafeDeref(plan.ResponsiblePerson.UserID),
			Actor:             actor,
			Message:           fmt.Sprintf("План «%s» обновлён (%s)", plan.Title, plan.Status),
		})
	}
	s.logger.Info("Статус активности изменён",
		zap.String("activityID", activityID), zap.String("status", string(to)))
	return updated, nil
}
