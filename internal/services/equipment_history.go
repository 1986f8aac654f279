package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/repositories"
	apperrors "petro-planning/pkg/errors"
)

type EquipmentHistoryServiceInterface interface {
	Append(ctx context.Context, tx pgx.Tx, entry dto.HistoryEntryDTO, createdBy string) (*entities.EquipmentHistory, error)
	Find(ctx context.Context, equipmentID string, historyType *string) ([]entities.EquipmentHistory, error)
	Reconcile(ctx context.Context, tx pgx.Tx, key entities.HistoryKey, entry dto.HistoryEntryDTO, actor string) (*entities.EquipmentHistory, error)
	DeleteForEquipment(ctx context.Context, tx pgx.Tx, equipmentID string) (int64, error)
}

type EquipmentHistoryService struct {
	repo   repositories.EquipmentHistoryRepositoryInterface
	logger *zap.Logger
}

func NewEquipmentHistoryService(repo repositories.EquipmentHistoryRepositoryInterface, logger *zap.Logger) EquipmentHistoryServiceInterface {
	return &EquipmentHistoryService{repo: repo, logger: logger}
}

func validateHistoryEntry(entry dto.HistoryEntryDTO) error {
	fields := map[string]string{}
	if entry.EquipmentID == "" {
		fields["equipmentId"] = "required"
	}
	if entry.FromDate.IsZero() {
		fields["fromDate"] = "required"
	}
	if entry.ToDate != nil && entry.ToDate.Before(entry.FromDate) {
		fields["toDate"] = "gtefield=fromDate"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("некорректная запись журнала оборудования", fields)
	}
	return nil
}

func applyHistoryEntry(h *entities.EquipmentHistory, entry dto.HistoryEntryDTO) {
	h.Type = entry.Type
	h.Description = entry.Description
	h.FromDate = entry.FromDate
	h.ToDate = entry.ToDate
	h.Location = entry.Location
	h.ResponsiblePerson = entry.ResponsiblePerson
	h.IsStatusChange = entry.IsStatusChange
	h.FromStatus = entry.FromStatus
	h.ToStatus = entry.ToStatus
	h.Reason = entry.Reason
}

// Append добавляет запись; toDate раньше fromDate - ValidationError.
func (s *EquipmentHistoryService) Append(ctx context.Context, tx pgx.Tx, entry dto.HistoryEntryDTO, createdBy string) (*entities.EquipmentHistory, error) {
	if err := validateHistoryEntry(entry); err != nil {
		return nil, err
	}

	now := timeNow()
	h := &entities.EquipmentHistory{
		ID:          uuid.NewString(),
		EquipmentID: entry.EquipmentID,
		ActivityID:  entry.ActivityID,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyHistoryEntry(h, entry)

	if err := s.repo.CreateInTx(ctx, tx, h); err != nil {
		s.logger.Error("Не удалось записать историю оборудования",
			zap.String("equipmentID", entry.EquipmentID), zap.Error(err))
		return nil, err
	}
	return h, nil
}

func (s *EquipmentHistoryService) Find(ctx context.Context, equipmentID string, historyType *string) ([]entities.EquipmentHistory, error) {
	if _, err := uuid.Parse(equipmentID); err != nil {
		return nil, apperrors.NewInvalidIDError(equipmentID)
	}
	return s.repo.FindByEquipment(ctx, equipmentID, historyType)
}

// Reconcile ведёт одну запись журнала на жизненный цикл активности:
// обновляет запись с тем же ключом или создаёт новую.
func (s *EquipmentHistoryService) Reconcile(ctx context.Context, tx pgx.Tx, key entities.HistoryKey, entry dto.HistoryEntryDTO, actor string) (*entities.EquipmentHistory, error) {
	entry.EquipmentID = key.EquipmentID
	entry.ActivityID = &key.ActivityID
	if err := validateHistoryEntry(entry); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByKeyInTx(ctx, tx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.Append(ctx, tx, entry, actor)
	}
	if err != nil {
		return nil, err
	}

	applyHistoryEntry(existing, entry)
	existing.UpdatedAt = timeNow()
	if err := s.repo.UpdateInTx(ctx, tx, existing); err != nil {
		s.logger.Error("Не удалось обновить запись истории",
			zap.String("historyID", existing.ID), zap.Error(err))
		return nil, err
	}
	return existing, nil
}

func (s *EquipmentHistoryService) DeleteForEquipment(ctx context.Context, tx pgx.Tx, equipmentID string) (int64, error) {
	return s.repo.DeleteByEquipmentInTx(ctx, tx, equipmentID)
}
