package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"petro-planning/internal/entities"
	apperrors "petro-planning/pkg/errors"
)

const activityFields = `id, equipment_id, position, type, start_date, end_date, description, location,
	responsible_person, status, created_by, updated_by, created_at, updated_at`

type ActivityRepositoryInterface interface {
	InsertInTx(ctx context.Context, tx pgx.Tx, activity *entities.Activity) error
	UpdateInTx(ctx context.Context, tx pgx.Tx, activity *entities.Activity) error
}

type ActivityRepository struct {
	logger *zap.Logger
}

func NewActivityRepository(logger *zap.Logger) ActivityRepositoryInterface {
	return &ActivityRepository{logger: logger}
}

func scanActivity(row pgx.Row) (*entities.Activity, error) {
	var a entities.Activity
	var activityType, status string
	err := row.Scan(
		&a.ID, &a.EquipmentID, &a.Position, &activityType, &a.StartDate, &a.EndDate,
		&a.Description, &a.Location, &a.ResponsiblePerson, &status,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования activity: %w", err)
	}
	a.Type = entities.ActivityType(activityType)
	a.Status = entities.ActivityStatus(status)
	return &a, nil
}

// loadActivities загружает списки активностей для набора оборудования
// в порядке добавления.
func loadActivities(ctx context.Context, querier Querier, equipmentIDs []string) (map[string][]entities.Activity, error) {
	query := `SELECT ` + activityFields + `
		FROM equipment_activities
		WHERE equipment_id = ANY($1::text[]::uuid[])
		ORDER BY equipment_id, position`

	rows, err := querier.Query(ctx, query, equipmentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]entities.Activity, len(equipmentIDs))
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result[a.EquipmentID] = append(result[a.EquipmentID], *a)
	}
	return result, rows.Err()
}

func (r *ActivityRepository) InsertInTx(ctx context.Context, tx pgx.Tx, a *entities.Activity) error {
	query := `
		INSERT INTO equipment_activities (id, equipment_id, position, type, start_date, end_date, description,
			location, responsible_person, status, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := tx.Exec(ctx, query,
		a.ID, a.EquipmentID, a.Position, string(a.Type), a.StartDate, a.EndDate, a.Description,
		a.Location, a.ResponsiblePerson, string(a.Status), a.CreatedBy, a.UpdatedBy, a.CreatedAt, a.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *ActivityRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, a *entities.Activity) error {
	query := `
		UPDATE equipment_activities
		SET type = $1, start_date = $2, end_date = $3, description = $4, location = $5,
		    responsible_person = $6, status = $7, updated_by = $8, updated_at = $9
		WHERE id = $10 AND equipment_id = $11`
	result, err := tx.Exec(ctx, query,
		string(a.Type), a.StartDate, a.EndDate, a.Description, a.Location,
		a.ResponsiblePerson, string(a.Status), a.UpdatedBy, a.UpdatedAt, a.ID, a.EquipmentID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("Активность", a.ID)
	}
	return nil
}
