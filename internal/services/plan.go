package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/events"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/utils"
)

type PlanServiceInterface interface {
	CreatePlan(ctx context.Context, data dto.CreatePlanDTO) (*entities.Plan, error)
	UpdatePlan(ctx context.Context, id string, data dto.UpdatePlanDTO) (*entities.Plan, error)
	DeletePlan(ctx context.Context, id string) error
	GetPlans(ctx context.Context, filter dto.PlanFilterDTO) ([]entities.Plan, uint64, error)
	GetPlanByID(ctx context.Context, id string) (*entities.Plan, error)
}

// PlanService - оркестратор планов. Каждая мутация стандартного плана в одной
// транзакции блокирует оборудование, меняет его активность, журнал и сам план.
type PlanService struct {
	*BaseService
	txManager     repositories.TxManagerInterface
	planRepo      repositories.PlanRepositoryInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	projectRepo   repositories.ProjectRepositoryInterface
	ledger        ActivityLedgerInterface
	history       EquipmentHistoryServiceInterface
	notifier      NotificationServiceInterface
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewPlanService(
	base *BaseService,
	txManager repositories.TxManagerInterface,
	planRepo repositories.PlanRepositoryInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	projectRepo repositories.ProjectRepositoryInterface,
	ledger ActivityLedgerInterface,
	history EquipmentHistoryServiceInterface,
	notifier NotificationServiceInterface,
	validate *validator.Validate,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		BaseService:   base,
		txManager:     txManager,
		planRepo:      planRepo,
		equipmentRepo: equipmentRepo,
		projectRepo:   projectRepo,
		ledger:        ledger,
		history:       history,
		notifier:      notifier,
		validate:      validate,
		logger:        logger,
	}
}

// projectsActivity - план проецируется в живую активность оборудования.
func projectsActivity(p *entities.Plan) bool {
	return p.Type.IsStandard() && p.Status != entities.PlanCancelled && p.EquipmentID != nil
}

func validatePlanInvariants(p *entities.Plan) error {
	fields := map[string]string{}
	if p.Type.IsStandard() && (p.EquipmentID == nil || *p.EquipmentID == "") {
		fields["equipmentId"] = "required_unless=type custom"
	}
	if p.EndDate.Before(p.StartDate) {
		fields["endDate"] = "gtefield=startDate"
	}
	if strings.TrimSpace(p.ResponsiblePerson.Name) == "" {
		fields["responsiblePerson.name"] = "required"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("некорректные данные плана", fields)
	}
	return nil
}

// describe - текст для журнала. Имя проекта добавляется по возможности:
// ошибка поиска проекта оставляет описание без изменений.
func (s *PlanService) describe(ctx context.Context, p *entities.Plan) string {
	description := fmt.Sprintf("План «%s»", p.Title)
	if p.Description != nil && strings.TrimSpace(*p.Description) != "" {
		description += ": " + strings.TrimSpace(*p.Description)
	}
	if p.ProjectID == nil || s.projectRepo == nil {
		return description
	}
	project, err := s.projectRepo.FindByID(ctx, *p.ProjectID)
	if err != nil {
		s.logger.Debug("Проект для описания не найден",
			zap.String("projectID", *p.ProjectID), zap.Error(err))
		return description
	}
	return fmt.Sprintf("%s (проект %s)", description, project.Name)
}

func planActivityData(p *entities.Plan, equipment *entities.Equipment) dto.ActivityDataDTO {
	location := utils.SafeDeref(p.Location)
	if location == "" {
		location = equipment.Location
	}
	end := p.EndDate
	return dto.ActivityDataDTO{
		Type:              p.Type.ActivityType(),
		StartDate:         p.StartDate,
		EndDate:           &end,
		Description:       p.Title,
		Location:          location,
		ResponsiblePerson: p.ResponsiblePerson.Name,
	}
}

func (s *PlanService) lockEquipment(ctx context.Context, tx pgx.Tx, id string) (*entities.Equipment, error) {
	equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Оборудование", id)
	}
	return equipment, err
}

// lockEquipments блокирует строки в порядке id, чтобы встречные переназначения
// не взаимоблокировались.
func (s *PlanService) lockEquipments(ctx context.Context, tx pgx.Tx, ids ...string) (map[string]*entities.Equipment, error) {
	ordered := append([]string(nil), ids...)
	sort.Strings(ordered)
	locked := make(map[string]*entities.Equipment, len(ordered))
	for _, id := range ordered {
		if _, ok := locked[id]; ok {
			continue
		}
		equipment, err := s.lockEquipment(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = equipment
	}
	return locked, nil
}

// schedule - шаги создания: ворота статуса, проверка пересечений,
// новая активность и скоррелированная запись журнала.
func (s *PlanService) schedule(ctx context.Context, tx pgx.Tx, p *entities.Plan, equipment *entities.Equipment, description, actor string) (*entities.Activity, error) {
	if err := CheckStatusGate(string(p.Type), equipment.Status); err != nil {
		s.logger.Warn("Оборудование не прошло проверку статуса",
			zap.String("equipmentID", equipment.ID), zap.String("status", string(equipment.Status)),
			zap.String("type", string(p.Type)))
		return nil, err
	}
	end := p.EndDate
	if HasScheduleConflict(equipment.Activities, p.StartDate, &end) {
		s.logger.Warn("Конфликт расписания",
			zap.String("equipmentID", equipment.ID), zap.Time("start", p.StartDate), zap.Time("end", p.EndDate))
		return nil, apperrors.NewConflictError("оборудование %s уже занято в период %s",
			equipment.Reference, formatRange(p.StartDate, &end))
	}

	activity, err := s.ledger.PushActivity(ctx, tx, equipment, planActivityData(p, equipment), actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.history.Append(ctx, tx, activityHistoryEntry(equipment, activity, description), actor); err != nil {
		return nil, err
	}
	return activity, nil
}

// release отменяет активность плана и помечает скоррелированную запись журнала.
func (s *PlanService) release(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment, activityID, description, reason, actor string) error {
	activity, err := s.ledger.CancelActivity(ctx, tx, equipment, activityID, actor)
	if err != nil {
		return err
	}
	entry := activityHistoryEntry(equipment, activity, description)
	entry.Reason = &reason
	_, err = s.history.Reconcile(ctx, tx, activityKey(equipment, activity), entry, actor)
	return err
}

func (s *PlanService) CreatePlan(ctx context.Context, data dto.CreatePlanDTO) (*entities.Plan, error) {
	if err := validateStruct(s.validate, data); err != nil {
		return nil, err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	now := timeNow()
	plan := &entities.Plan{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(data.Title),
		Description:    data.Description,
		StartDate:      data.StartDate.UTC(),
		EndDate:        data.EndDate.UTC(),
		Type:           entities.PlanType(data.Type),
		CustomTypeName: data.CustomTypeName,
		Status:         entities.PlanScheduled,
		ProjectID:      data.ProjectID,
		EquipmentID:    data.EquipmentID,
		Location:       data.Location,
		ResponsiblePerson: entities.ResponsiblePerson{
			Name:   strings.TrimSpace(data.ResponsiblePerson.Name),
			Email:  data.ResponsiblePerson.Email,
			Phone:  data.ResponsiblePerson.Phone,
			UserID: data.ResponsiblePerson.UserID,
		},
		Notes:     data.Notes,
		CreatedBy: actor,
	}
	plan.CreatedAt = &now
	plan.UpdatedAt = &now
	if err := validatePlanInvariants(plan); err != nil {
		return nil, err
	}

	var description string
	if plan.Type.IsStandard() {
		description = s.describe(ctx, plan)
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if plan.Type.IsStandard() {
			equipment, err := s.lockEquipment(ctx, tx, *plan.EquipmentID)
			if err != nil {
				return err
			}
			activity, err := s.schedule(ctx, tx, plan, equipment, description, actor)
			if err != nil {
				return err
			}
			plan.ActivityID = &activity.ID
		}
		return s.planRepo.CreateInTx(ctx, tx, plan)
	})
	if err != nil {
		s.logger.Error("Не удалось создать план",
			zap.String("title", plan.Title), zap.String("type", string(plan.Type)), zap.Error(err))
		return nil, err
	}

	if plan.Type.IsStandard() {
		s.InvalidateEquipment(ctx, *plan.EquipmentID)
	}
	s.notifier.PlanChanged(ctx, events.PlanEvent{
		EventName:         events.PlanCreated,
		PlanID:            plan.ID,
		EquipmentID:       plan.EquipmentRef(),
		ResponsibleUserID: utils.SafeDeref(plan.ResponsiblePerson.UserID),
		Actor:             actor,
		Message:           fmt.Sprintf("Создан план «%s»", plan.Title),
	})
	s.logger.Info("План создан",
		zap.String("id", plan.ID), zap.String("type", string(plan.Type)), zap.String("equipmentID", plan.EquipmentRef()))
	return plan, nil
}

func applyNullable(dst **string, v null.String) {
	if !v.Valid {
		return
	}
	if strings.TrimSpace(v.String) == "" {
		*dst = nil
		return
	}
	value := v.String
	*dst = &value
}

// mergePlan накладывает частичное обновление на копию плана.
func mergePlan(current *entities.Plan, data dto.UpdatePlanDTO) (*entities.Plan, error) {
	merged := *current
	if data.Title != nil {
		merged.Title = strings.TrimSpace(*data.Title)
	}
	if data.StartDate != nil {
		merged.StartDate = data.StartDate.UTC()
	}
	if data.EndDate != nil {
		merged.EndDate = data.EndDate.UTC()
	}
	if data.Type != nil {
		merged.Type = entities.PlanType(*data.Type)
	}
	applyNullable(&merged.Description, data.Description)
	applyNullable(&merged.CustomTypeName, data.CustomTypeName)
	applyNullable(&merged.ProjectID, data.ProjectID)
	applyNullable(&merged.EquipmentID, data.EquipmentID)
	applyNullable(&merged.Location, data.Location)
	applyNullable(&merged.Notes, data.Notes)
	if rp := data.ResponsiblePerson; rp != nil {
		merged.ResponsiblePerson = entities.ResponsiblePerson{
			Name:   strings.TrimSpace(rp.Name),
			Email:  rp.Email,
			Phone:  rp.Phone,
			UserID: rp.UserID,
		}
	}
	if data.Status != nil {
		next := entities.PlanStatus(*data.Status)
		if !current.Status.CanTransition(next) {
			return nil, apperrors.NewInvalidStateError("переход плана %s → %s недопустим", current.Status, next)
		}
		merged.Status = next
	}
	if merged.EquipmentID != nil {
		if _, err := uuid.Parse(*merged.EquipmentID); err != nil {
			return nil, apperrors.NewInvalidIDError(*merged.EquipmentID)
		}
	}
	return &merged, validatePlanInvariants(&merged)
}

func (s *PlanService) UpdatePlan(ctx context.Context, id string, data dto.UpdatePlanDTO) (*entities.Plan, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, data); err != nil {
		return nil, err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var updated *entities.Plan
	touched := make([]string, 0, 2)

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.planRepo.FindForUpdateInTx(ctx, tx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("План", id)
		}
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return apperrors.NewInvalidStateError("план в статусе %s не редактируется", current.Status)
		}

		next, err := mergePlan(current, data)
		if err != nil {
			return err
		}

		hadActivity := current.ActivityID != nil && current.EquipmentID != nil
		wantsActivity := projectsActivity(next)

		lockIDs := make([]string, 0, 2)
		if hadActivity {
			lockIDs = append(lockIDs, *current.EquipmentID)
		}
		if wantsActivity {
			lockIDs = append(lockIDs, *next.EquipmentID)
		}
		locked, err := s.lockEquipments(ctx, tx, lockIDs...)
		if err != nil {
			return err
		}
		// Завершённую или отменённую активность план назад не двигает.
		if hadActivity {
			if _, activity := locked[*current.EquipmentID].FindActivity(*current.ActivityID); activity != nil && !activity.IsLive() {
				return apperrors.NewInvalidStateError("активность плана уже в статусе %s", activity.Status)
			}
		}

		var description string
		if hadActivity || wantsActivity {
			description = s.describe(ctx, next)
		}

		switch {
		case hadActivity && wantsActivity && *current.EquipmentID == *next.EquipmentID:
			err = s.reschedule(ctx, tx, current, next, locked[*next.EquipmentID], description, actor)
		case hadActivity && wantsActivity:
			oldEquipment := locked[*current.EquipmentID]
			if err = s.release(ctx, tx, oldEquipment, *current.ActivityID, description,
				"План переназначен на другое оборудование", actor); err != nil {
				return err
			}
			var activity *entities.Activity
			activity, err = s.schedule(ctx, tx, next, locked[*next.EquipmentID], description, actor)
			if err == nil {
				next.ActivityID = &activity.ID
			}
		case hadActivity:
			reason := "План переведён в произвольный тип"
			if next.Status == entities.PlanCancelled {
				reason = "План отменён"
			}
			err = s.release(ctx, tx, locked[*current.EquipmentID], *current.ActivityID, description, reason, actor)
			next.ActivityID = nil
		case wantsActivity:
			var activity *entities.Activity
			activity, err = s.schedule(ctx, tx, next, locked[*next.EquipmentID], description, actor)
			if err == nil {
				next.ActivityID = &activity.ID
			}
		default:
			next.ActivityID = nil
		}
		if err != nil {
			return err
		}

		if wantsActivity && next.Status != entities.PlanScheduled {
			if err := s.mirrorStatus(ctx, tx, next, locked[*next.EquipmentID], description, actor); err != nil {
				return err
			}
		}

		now := timeNow()
		next.UpdatedBy = &actor
		next.UpdatedAt = &now
		if err := s.planRepo.UpdateInTx(ctx, tx, next); err != nil {
			return err
		}

		for equipmentID := range locked {
			touched = append(touched, equipmentID)
		}
		updated = next
		return nil
	})
	if err != nil {
		s.logger.Error("Не удалось обновить план", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if len(touched) > 0 {
		s.InvalidateEquipment(ctx, touched...)
	}
	s.notifier.PlanChanged(ctx, events.PlanEvent{
		EventName:         events.PlanUpdated,
		PlanID:            updated.ID,
		EquipmentID:       updated.EquipmentRef(),
		ResponsibleUserID: utils.SafeDeref(updated.ResponsiblePerson.UserID),
		Actor:             actor,
		Message:           fmt.Sprintf("План «%s» обновлён (%s)", updated.Title, updated.Status),
	})
	s.logger.Info("План обновлён", zap.String("id", id), zap.String("status", string(updated.Status)))
	return updated, nil
}

// reschedule - оборудование не менялось: активность правится на месте,
// проверка пересечений не учитывает саму активность плана.
func (s *PlanService) reschedule(ctx context.Context, tx pgx.Tx, current, next *entities.Plan, equipment *entities.Equipment, description, actor string) error {
	if next.Type != current.Type {
		if err := CheckStatusGate(string(next.Type), equipment.Status); err != nil {
			return err
		}
	}
	end := next.EndDate
	if hasScheduleConflictExcept(equipment.Activities, next.StartDate, &end, *current.ActivityID) {
		return apperrors.NewConflictError("оборудование %s уже занято в период %s",
			equipment.Reference, formatRange(next.StartDate, &end))
	}

	activity, err := s.ledger.UpdateActivity(ctx, tx, equipment, *current.ActivityID, planActivityData(next, equipment), actor)
	if err != nil {
		return err
	}
	_, err = s.history.Reconcile(ctx, tx, activityKey(equipment, activity), activityHistoryEntry(equipment, activity, description), actor)
	return err
}

// mirrorStatus переносит in_progress/completed плана на его активность
// и применяет последствия для статуса оборудования.
func (s *PlanService) mirrorStatus(ctx context.Context, tx pgx.Tx, p *entities.Plan, equipment *entities.Equipment, description, actor string) error {
	activity, err := s.ledger.SetActivityStatus(ctx, tx, equipment, *p.ActivityID, p.Status.ActivityStatus(), nil, actor)
	if err != nil {
		return err
	}
	if _, err := s.history.Reconcile(ctx, tx, activityKey(equipment, activity), activityHistoryEntry(equipment, activity, description), actor); err != nil {
		return err
	}
	_, err = applyActivityStatusEffect(ctx, tx, s.equipmentRepo, s.history, equipment, activity, actor)
	return err
}

// DeletePlan - мягкое удаление: план остаётся в таблице, его активность
// отменяется, запись журнала получает причину удаления.
func (s *PlanService) DeletePlan(ctx context.Context, id string) error {
	if err := parseID(id); err != nil {
		return err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var deleted *entities.Plan
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		plan, err := s.planRepo.FindForUpdateInTx(ctx, tx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("План", id)
		}
		if err != nil {
			return err
		}

		if plan.ActivityID != nil && plan.EquipmentID != nil {
			equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, *plan.EquipmentID)
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				s.logger.Warn("Оборудование удалённого плана уже не существует",
					zap.String("planID", id), zap.String("equipmentID", *plan.EquipmentID))
			case err != nil:
				return err
			default:
				if err := s.release(ctx, tx, equipment, *plan.ActivityID, s.describe(ctx, plan),
					entities.HistoryReasonPlanDeleted, actor); err != nil {
					return err
				}
			}
		}

		now := timeNow()
		plan.IsDeleted = true
		plan.DeletedAt = &now
		plan.DeletedBy = &actor
		plan.Status = entities.PlanCancelled
		plan.ActivityID = nil
		plan.UpdatedBy = &actor
		plan.UpdatedAt = &now
		if err := s.planRepo.UpdateInTx(ctx, tx, plan); err != nil {
			return err
		}
		deleted = plan
		return nil
	})
	if err != nil {
		s.logger.Error("Не удалось удалить план", zap.String("id", id), zap.Error(err))
		return err
	}

	if deleted.EquipmentID != nil {
		s.InvalidateEquipment(ctx, *deleted.EquipmentID)
	}
	s.notifier.PlanChanged(ctx, events.PlanEvent{
		EventName:         events.PlanDeleted,
		PlanID:            id,
		EquipmentID:       deleted.EquipmentRef(),
		ResponsibleUserID: utils.SafeDeref(deleted.ResponsiblePerson.UserID),
		Actor:             actor,
		Message:           fmt.Sprintf("План «%s» удалён", deleted.Title),
	})
	s.logger.Info("План удалён", zap.String("id", id))
	return nil
}

func planFilterFromDTO(f dto.PlanFilterDTO) (repositories.PlanFilter, error) {
	filter := repositories.PlanFilter{
		EquipmentID: f.EquipmentID,
		ProjectID:   f.ProjectID,
		From:        f.From,
		To:          f.To,
		Search:      f.Search,
		Limit:       f.Limit,
	}
	for _, id := range []*string{f.EquipmentID, f.ProjectID} {
		if id != nil {
			if _, err := uuid.Parse(*id); err != nil {
				return filter, apperrors.NewInvalidIDError(*id)
			}
		}
	}
	if f.Type != nil {
		t := entities.PlanType(*f.Type)
		if !t.Valid() {
			return filter, apperrors.NewFieldValidationError("некорректный фильтр", map[string]string{"type": "plan_type"})
		}
		filter.Type = &t
	}
	if f.Status != nil {
		st := entities.PlanStatus(*f.Status)
		if !st.Valid() {
			return filter, apperrors.NewFieldValidationError("некорректный фильтр", map[string]string{"status": "plan_status"})
		}
		filter.Status = &st
	}
	if f.Page > 1 && f.Limit > 0 {
		filter.Offset = (f.Page - 1) * f.Limit
	}
	return filter, nil
}

func (s *PlanService) GetPlans(ctx context.Context, f dto.PlanFilterDTO) ([]entities.Plan, uint64, error) {
	filter, err := planFilterFromDTO(f)
	if err != nil {
		return nil, 0, err
	}
	plans, total, err := s.planRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка получения списка планов", zap.Error(err))
		return nil, 0, err
	}
	return plans, total, nil
}

func (s *PlanService) GetPlanByID(ctx context.Context, id string) (*entities.Plan, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	plan, err := s.planRepo.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("План", id)
	}
	if err != nil {
		s.logger.Error("Ошибка загрузки плана", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return plan, nil
}
