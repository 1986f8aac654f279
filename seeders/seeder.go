package seeders

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"petro-planning/internal/entities"
	"petro-planning/internal/repositories"
	"petro-planning/internal/services"
	apperrors "petro-planning/pkg/errors"
)

// SeedProjects создаёт или переименовывает демонстрационные проекты.
func SeedProjects(ctx context.Context, repo repositories.ProjectRepositoryInterface, logger *zap.Logger) error {
	logger.Info("Наполнение таблицы 'projects'")
	now := time.Now().UTC()
	for _, p := range projectsData {
		if err := repo.Create(ctx, &entities.Project{ID: p.ID, Name: p.Name, CreatedAt: now}); err != nil {
			return err
		}
	}
	logger.Info("Проекты готовы", zap.Int("count", len(projectsData)))
	return nil
}

// SeedEquipment добавляет демонстрационное оборудование; уже существующее пропускается.
func SeedEquipment(ctx context.Context, equipment services.EquipmentServiceInterface, logger *zap.Logger) error {
	logger.Info("Наполнение таблицы 'equipments'")
	created := 0
	for _, data := range equipmentsData {
		_, err := equipment.Create(ctx, data)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrDuplicateKey):
			logger.Debug("Оборудование уже существует", zap.String("reference", data.Reference))
		default:
			return err
		}
	}
	logger.Info("Оборудование готово", zap.Int("created", created), zap.Int("total", len(equipmentsData)))
	return nil
}
