package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
)

type AvailabilityServiceInterface interface {
	GetAvailableEquipment(ctx context.Context, query dto.AvailabilityQueryDTO) ([]entities.Equipment, error)
}

// AvailabilityService отвечает на вопрос "какое оборудование может выполнить
// работы данного типа". Пересечения дат не фильтруются: списки активностей
// возвращаются целиком, конфликт проверяет вызывающая сторона.
type AvailabilityService struct {
	equipmentRepo repositories.EquipmentRepositoryInterface
	planRepo      repositories.PlanRepositoryInterface
	logger        *zap.Logger
}

func NewAvailabilityService(
	equipmentRepo repositories.EquipmentRepositoryInterface,
	planRepo repositories.PlanRepositoryInterface,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{equipmentRepo: equipmentRepo, planRepo: planRepo, logger: logger}
}

func validateAvailabilityQuery(q dto.AvailabilityQueryDTO) error {
	fields := map[string]string{}
	if q.StartDate.IsZero() {
		fields["startDate"] = "required"
	}
	if q.EndDate.IsZero() {
		fields["endDate"] = "required"
	} else if q.EndDate.Before(q.StartDate) {
		fields["endDate"] = "gtefield=startDate"
	}
	if !entities.PlanType(q.Type).Valid() && !entities.ActivityType(q.Type).Valid() {
		fields["type"] = "plan_type"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("некорректный запрос доступности", fields)
	}
	if q.ProjectID != nil {
		if _, err := uuid.Parse(*q.ProjectID); err != nil {
			return apperrors.NewInvalidIDError(*q.ProjectID)
		}
	}
	return nil
}

func (s *AvailabilityService) GetAvailableEquipment(ctx context.Context, q dto.AvailabilityQueryDTO) ([]entities.Equipment, error) {
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if err := validateAvailabilityQuery(q); err != nil {
		return nil, err
	}

	var (
		equipment []entities.Equipment
		usedIDs   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		equipment, err = s.equipmentRepo.ListByStatuses(gctx, AllowedStatuses(q.Type))
		return err
	})
	if q.ProjectID != nil {
		g.Go(func() error {
			var err error
			usedIDs, err = s.planRepo.EquipmentIDsByProject(gctx, *q.ProjectID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Ошибка запроса доступного оборудования",
			zap.String("type", q.Type), zap.Error(err))
		return nil, err
	}

	result := PrioritizeByUsage(equipment, usedIDs)
	s.logger.Debug("Доступное оборудование",
		zap.String("type", q.Type), zap.Int("count", len(result)), zap.Int("usedInProject", len(usedIDs)))
	return result, nil
}

// PrioritizeByUsage - устойчивое разбиение: оборудование из usedIDs идёт первым,
// порядок внутри обеих групп сохраняется.
func PrioritizeByUsage(equipment []entities.Equipment, usedIDs []string) []entities.Equipment {
	if len(usedIDs) == 0 {
		return equipment
	}
	used := make(map[string]struct{}, len(usedIDs))
	for _, id := range usedIDs {
		used[id] = struct{}{}
	}
	first := make([]entities.Equipment, 0, len(equipment))
	rest := make([]entities.Equipment, 0, len(equipment))
	for _, e := range equipment {
		if _, ok := used[e.ID]; ok {
			first = append(first, e)
		} else {
			rest = append(rest, e)
		}
	}
	return append(first, rest...)
}
