package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/events"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/types"
	"petro-planning/pkg/utils"
)

type EquipmentServiceInterface interface {
	Create(ctx context.Context, data dto.CreateEquipmentDTO) (*entities.Equipment, error)
	GetByID(ctx context.Context, id string) (*entities.Equipment, error)
	List(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error)
	Update(ctx context.Context, id string, data dto.UpdateEquipmentDTO) (*entities.Equipment, error)
	Delete(ctx context.Context, id string) (*entities.Equipment, error)
	ChangeStatus(ctx context.Context, id string, data dto.ChangeEquipmentStatusDTO) (*entities.Equipment, error)
	GetHistory(ctx context.Context, id string, historyType *string) ([]entities.EquipmentHistory, error)
}

type EquipmentService struct {
	*BaseService
	txManager     repositories.TxManagerInterface
	equipmentRepo repositories.EquipmentRepositoryInterface
	planRepo      repositories.PlanRepositoryInterface
	history       EquipmentHistoryServiceInterface
	notifier      NotificationServiceInterface
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewEquipmentService(
	base *BaseService,
	txManager repositories.TxManagerInterface,
	equipmentRepo repositories.EquipmentRepositoryInterface,
	planRepo repositories.PlanRepositoryInterface,
	history EquipmentHistoryServiceInterface,
	notifier NotificationServiceInterface,
	validate *validator.Validate,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		BaseService:   base,
		txManager:     txManager,
		equipmentRepo: equipmentRepo,
		planRepo:      planRepo,
		history:       history,
		notifier:      notifier,
		validate:      validate,
		logger:        logger,
	}
}

func parseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewInvalidIDError(id)
	}
	return nil
}

// recordStatusChange меняет статус оборудования и пишет запись журнала
// в той же транзакции. false - статус уже был таким.
func recordStatusChange(
	ctx context.Context,
	tx pgx.Tx,
	repo repositories.EquipmentRepositoryInterface,
	history EquipmentHistoryServiceInterface,
	equipment *entities.Equipment,
	to entities.EquipmentStatus,
	reason *string,
	actor string,
) (bool, error) {
	from := equipment.Status
	if from == to {
		return false, nil
	}
	if err := repo.UpdateStatusInTx(ctx, tx, equipment.ID, to); err != nil {
		return false, err
	}
	equipment.Status = to

	_, err := history.Append(ctx, tx, dto.HistoryEntryDTO{
		EquipmentID:    equipment.ID,
		Type:           entities.HistoryTypeStatusChange,
		Description:    fmt.Sprintf("Статус изменён: %s → %s", from, to),
		FromDate:       timeNow(),
		Location:       utils.NonEmptyPtr(equipment.Location),
		IsStatusChange: true,
		FromStatus:     &from,
		ToStatus:       &to,
		Reason:         reason,
	}, actor)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *EquipmentService) Create(ctx context.Context, data dto.CreateEquipmentDTO) (*entities.Equipment, error) {
	if err := validateStruct(s.validate, data); err != nil {
		return nil, err
	}

	status := entities.EquipmentAvailable
	if data.Status != nil {
		normalized, err := entities.NormalizeEquipmentStatus(*data.Status)
		if err != nil {
			return nil, err
		}
		status = normalized
	}

	actor := utils.GetUserIDFromCtx(ctx)
	now := timeNow()
	equipment := &entities.Equipment{
		ID:        uuid.NewString(),
		Reference: strings.TrimSpace(data.Reference),
		Matricule: strings.TrimSpace(data.Matricule),
		Name:      strings.TrimSpace(data.Name),
		Dimensions: entities.Dimensions{
			Height: *data.Dimensions.Height,
			Width:  *data.Dimensions.Width,
			Length: *data.Dimensions.Length,
			Weight: *data.Dimensions.Weight,
		},
		OperatingConditions: entities.OperatingConditions{
			Temperature: *data.OperatingConditions.Temperature,
			Pressure:    *data.OperatingConditions.Pressure,
		},
		Location:   strings.TrimSpace(data.Location),
		Status:     status,
		Activities: []entities.Activity{},
		CreatedBy:  actor,
	}
	equipment.Dimensions.Recompute()
	equipment.Touch(now)

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		return s.equipmentRepo.CreateInTx(ctx, tx, equipment)
	})
	if err != nil {
		s.logger.Warn("Не удалось создать оборудование",
			zap.String("reference", equipment.Reference), zap.Error(err))
		return nil, err
	}

	s.InvalidateEquipmentList(ctx)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   events.EquipmentCreated,
		EquipmentID: equipment.ID,
		Actor:       actor,
		Message:     fmt.Sprintf("Добавлено оборудование %s (%s)", equipment.Name, equipment.Reference),
	})
	s.logger.Info("Оборудование создано", zap.String("id", equipment.ID), zap.String("reference", equipment.Reference))
	return equipment, nil
}

// GetByID возвращает nil, nil, если оборудования нет.
func (s *EquipmentService) GetByID(ctx context.Context, id string) (*entities.Equipment, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}

	var cached entities.Equipment
	if s.CacheGet(ctx, equipmentCacheKey(id), &cached) {
		return &cached, nil
	}

	equipment, err := s.equipmentRepo.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Ошибка загрузки оборудования", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.CacheSet(ctx, equipmentCacheKey(id), equipment)
	return equipment, nil
}

type equipmentListPage struct {
	Items []entities.Equipment `json:"items"`
	Total uint64               `json:"total"`
}

func normalizeStatusFilter(filter types.Filter) (types.Filter, error) {
	raw, ok := filter.Filter["status"].(string)
	if !ok || raw == "" {
		return filter, nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		status, err := entities.NormalizeEquipmentStatus(p)
		if err != nil {
			return filter, err
		}
		parts[i] = string(status)
	}
	normalized := make(map[string]interface{}, len(filter.Filter))
	for k, v := range filter.Filter {
		normalized[k] = v
	}
	normalized["status"] = strings.Join(parts, ",")
	filter.Filter = normalized
	return filter, nil
}

func (s *EquipmentService) List(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error) {
	filter, err := normalizeStatusFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	key, keyErr := listCacheKey(filter)
	var page equipmentListPage
	if keyErr == nil && s.CacheGet(ctx, key, &page) {
		return page.Items, page.Total, nil
	}

	items, total, err := s.equipmentRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка получения списка оборудования", zap.Error(err))
		return nil, 0, err
	}

	if keyErr == nil {
		s.CacheSet(ctx, key, equipmentListPage{Items: items, Total: total})
	}
	return items, total, nil
}

func mergeEquipment(e *entities.Equipment, data dto.UpdateEquipmentDTO) {
	if data.Name != nil {
		e.Name = strings.TrimSpace(*data.Name)
	}
	if data.Reference != nil {
		e.Reference = strings.TrimSpace(*data.Reference)
	}
	if data.Matricule != nil {
		e.Matricule = strings.TrimSpace(*data.Matricule)
	}
	if data.Location != nil {
		e.Location = strings.TrimSpace(*data.Location)
	}
	if d := data.Dimensions; d != nil {
		if d.Height != nil {
			e.Dimensions.Height = *d.Height
		}
		if d.Width != nil {
			e.Dimensions.Width = *d.Width
		}
		if d.Length != nil {
			e.Dimensions.Length = *d.Length
		}
		if d.Weight != nil {
			e.Dimensions.Weight = *d.Weight
		}
	}
	if c := data.OperatingConditions; c != nil {
		if c.Temperature != nil {
			e.OperatingConditions.Temperature = *c.Temperature
		}
		if c.Pressure != nil {
			e.OperatingConditions.Pressure = *c.Pressure
		}
	}
	e.Dimensions.Recompute()
}

// asCreateDTO позволяет повторно проверить объединённую запись теми же
// правилами, что и при создании.
func asCreateDTO(e *entities.Equipment) dto.CreateEquipmentDTO {
	status := string(e.Status)
	return dto.CreateEquipmentDTO{
		Name:      e.Name,
		Reference: e.Reference,
		Matricule: e.Matricule,
		Dimensions: &dto.DimensionsDTO{
			Height: &e.Dimensions.Height,
			Width:  &e.Dimensions.Width,
			Length: &e.Dimensions.Length,
			Weight: &e.Dimensions.Weight,
		},
		OperatingConditions: &dto.OperatingConditionsDTO{
			Temperature: &e.OperatingConditions.Temperature,
			Pressure:    &e.OperatingConditions.Pressure,
		},
		Location: e.Location,
		Status:   &status,
	}
}

func (s *EquipmentService) Update(ctx context.Context, id string, data dto.UpdateEquipmentDTO) (*entities.Equipment, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, data); err != nil {
		return nil, err
	}

	var newStatus *entities.EquipmentStatus
	if data.Status != nil {
		normalized, err := entities.NormalizeEquipmentStatus(*data.Status)
		if err != nil {
			return nil, err
		}
		newStatus = &normalized
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var updated *entities.Equipment
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("Оборудование", id)
		}
		if err != nil {
			return err
		}

		mergeEquipment(equipment, data)
		if err := validateStruct(s.validate, asCreateDTO(equipment)); err != nil {
			return err
		}
		equipment.Touch(timeNow())
		if err := s.equipmentRepo.UpdateInTx(ctx, tx, equipment); err != nil {
			return err
		}

		if newStatus != nil {
			if _, err := recordStatusChange(ctx, tx, s.equipmentRepo, s.history, equipment, *newStatus, nil, actor); err != nil {
				return err
			}
		}
		updated = equipment
		return nil
	})
	if err != nil {
		s.logger.Warn("Не удалось обновить оборудование", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.InvalidateEquipment(ctx, id)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   events.EquipmentUpdated,
		EquipmentID: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Оборудование %s обновлено", updated.Reference),
	})
	s.logger.Info("Оборудование обновлено", zap.String("id", id))
	return updated, nil
}

// Delete удаляет оборудование вместе с его журналом. nil, nil - если его не было.
func (s *EquipmentService) Delete(ctx context.Context, id string) (*entities.Equipment, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var deleted *entities.Equipment
	var historyRows, detached int64
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// Активности удаляются каскадом, поэтому планы не должны ссылаться на них.
		if detached, err = s.planRepo.DetachEquipmentInTx(ctx, tx, id, actor); err != nil {
			return err
		}
		if historyRows, err = s.history.DeleteForEquipment(ctx, tx, id); err != nil {
			return err
		}
		if err := s.equipmentRepo.DeleteInTx(ctx, tx, id); err != nil {
			return err
		}
		deleted = equipment
		return nil
	})
	if err != nil {
		s.logger.Error("Не удалось удалить оборудование", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if deleted == nil {
		return nil, nil
	}

	s.InvalidateEquipment(ctx, id)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   events.EquipmentDeleted,
		EquipmentID: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Оборудование %s удалено", deleted.Reference),
	})
	s.logger.Info("Оборудование удалено",
		zap.String("id", id), zap.Int64("historyRows", historyRows), zap.Int64("detachedPlans", detached))
	return deleted, nil
}

func (s *EquipmentService) ChangeStatus(ctx context.Context, id string, data dto.ChangeEquipmentStatusDTO) (*entities.Equipment, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	status, err := entities.NormalizeEquipmentStatus(data.Status)
	if err != nil {
		return nil, err
	}

	actor := utils.GetUserIDFromCtx(ctx)
	var equipment *entities.Equipment
	var from entities.EquipmentStatus
	var changed bool
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		equipment, err = s.equipmentRepo.FindForUpdateInTx(ctx, tx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("Оборудование", id)
		}
		if err != nil {
			return err
		}
		from = equipment.Status
		changed, err = recordStatusChange(ctx, tx, s.equipmentRepo, s.history, equipment, status, data.Reason, actor)
		return err
	})
	if err != nil {
		s.logger.Warn("Не удалось изменить статус оборудования", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !changed {
		return equipment, nil
	}

	s.InvalidateEquipment(ctx, id)
	s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
		EventName:   events.EquipmentStatusChanged,
		EquipmentID: id,
		Actor:       actor,
		Message:     fmt.Sprintf("Статус %s: %s → %s", equipment.Reference, from, status),
	})
	s.logger.Info("Статус оборудования изменён",
		zap.String("id", id), zap.String("from", string(from)), zap.String("to", string(status)))
	return equipment, nil
}

func (s *EquipmentService) GetHistory(ctx context.Context, id string, historyType *string) ([]entities.EquipmentHistory, error) {
	return s.history.Find(ctx, id, historyType)
}

// formatRange - период активности для текста журнала и уведомлений.
func formatRange(start time.Time, end *time.Time) string {
	if end == nil {
		return start.Format("2006-01-02") + " → …"
	}
	return start.Format("2006-01-02") + " → " + end.Format("2006-01-02")
}
