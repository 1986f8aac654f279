package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petro-planning/internal/entities"
	apperrors "petro-planning/pkg/errors"
)

var historyColumns = []string{
	"id", "equipment_id", "type", "description", "from_date", "to_date", "location",
	"responsible_person", "is_status_change", "from_status", "to_status", "reason",
	"activity_id", "created_by", "created_at", "updated_at",
}

type EquipmentHistoryRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, entry *entities.EquipmentHistory) error
	UpdateInTx(ctx context.Context, tx pgx.Tx, entry *entities.EquipmentHistory) error
	FindByKeyInTx(ctx context.Context, tx pgx.Tx, key entities.HistoryKey) (*entities.EquipmentHistory, error)
	FindByEquipment(ctx context.Context, equipmentID string, historyType *string) ([]entities.EquipmentHistory, error)
	DeleteByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID string) (int64, error)
}

type EquipmentHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewEquipmentHistoryRepository(storage *pgxpool.Pool) EquipmentHistoryRepositoryInterface {
	return &EquipmentHistoryRepository{storage: storage}
}

func normalizeOptionalStatus(raw *string) (*entities.EquipmentStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := entities.NormalizeEquipmentStatus(*raw)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func scanHistory(row pgx.Row) (*entities.EquipmentHistory, error) {
	var h entities.EquipmentHistory
	var fromStatus, toStatus *string
	err := row.Scan(
		&h.ID, &h.EquipmentID, &h.Type, &h.Description, &h.FromDate, &h.ToDate, &h.Location,
		&h.ResponsiblePerson, &h.IsStatusChange, &fromStatus, &toStatus, &h.Reason,
		&h.ActivityID, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования equipment_history: %w", err)
	}

	// Старые записи журнала содержат устаревшие значения статусов.
	if h.FromStatus, err = normalizeOptionalStatus(fromStatus); err != nil {
		return nil, err
	}
	if h.ToStatus, err = normalizeOptionalStatus(toStatus); err != nil {
		return nil, err
	}
	return &h, nil
}

func statusArg(s *entities.EquipmentStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func (r *EquipmentHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, h *entities.EquipmentHistory) error {
	query := `
		INSERT INTO equipment_history (id, equipment_id, type, description, from_date, to_date, location,
			responsible_person, is_status_change, from_status, to_status, reason, activity_id,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := tx.Exec(ctx, query,
		h.ID, h.EquipmentID, h.Type, h.Description, h.FromDate, h.ToDate, h.Location,
		h.ResponsiblePerson, h.IsStatusChange, statusArg(h.FromStatus), statusArg(h.ToStatus), h.Reason,
		h.ActivityID, h.CreatedBy, h.CreatedAt, h.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *EquipmentHistoryRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, h *entities.EquipmentHistory) error {
	query := `
		UPDATE equipment_history
		SET type = $1, description = $2, from_date = $3, to_date = $4, location = $5,
		    responsible_person = $6, is_status_change = $7, from_status = $8, to_status = $9,
		    reason = $10, updated_at = $11
		WHERE id = $12`
	result, err := tx.Exec(ctx, query,
		h.Type, h.Description, h.FromDate, h.ToDate, h.Location,
		h.ResponsiblePerson, h.IsStatusChange, statusArg(h.FromStatus), statusArg(h.ToStatus),
		h.Reason, h.UpdatedAt, h.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("Запись истории", h.ID)
	}
	return nil
}

// FindByKeyInTx ищет запись по ключу корреляции; ErrNotFound, если её нет.
func (r *EquipmentHistoryRepository) FindByKeyInTx(ctx context.Context, tx pgx.Tx, key entities.HistoryKey) (*entities.EquipmentHistory, error) {
	query, args, err := psql().Select(historyColumns...).
		From("equipment_history").
		Where(sq.Eq{"activity_id": key.ActivityID, "equipment_id": key.EquipmentID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanHistory(tx.QueryRow(ctx, query, args...))
}

func (r *EquipmentHistoryRepository) FindByEquipment(ctx context.Context, equipmentID string, historyType *string) ([]entities.EquipmentHistory, error) {
	builder := psql().Select(historyColumns...).
		From("equipment_history").
		Where(sq.Eq{"equipment_id": equipmentID}).
		OrderBy("from_date DESC", "created_at DESC")
	if historyType != nil && *historyType != "" {
		builder = builder.Where(sq.Eq{"type": *historyType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]entities.EquipmentHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *h)
	}
	return history, rows.Err()
}

func (r *EquipmentHistoryRepository) DeleteByEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID string) (int64, error) {
	result, err := tx.Exec(ctx, `DELETE FROM equipment_history WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
