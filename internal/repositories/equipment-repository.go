package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"petro-planning/internal/entities"
	bd "petro-planning/internal/infrastructure/bd"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/types"
)

const equipmentTable = "equipments"

var equipmentColumns = []string{
	"e.id", "e.reference", "e.matricule", "e.name",
	"e.height", "e.width", "e.length", "e.weight", "e.volume",
	"e.temperature", "e.pressure", "e.location", "e.status",
	"e.created_by", "e.created_at", "e.updated_at",
}

// Карта допустимых полей фильтрации и сортировки.
var equipmentMap = map[string]string{
	"id":         "e.id",
	"name":       "e.name",
	"reference":  "e.reference",
	"matricule":  "e.matricule",
	"status":     "e.status",
	"location":   "e.location",
	"created_at": "e.created_at",
	"updated_at": "e.updated_at",
}

var equipmentSearchColumns = []string{"e.name", "e.reference", "e.matricule"}

type EquipmentRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment) error
	FindByID(ctx context.Context, id string) (*entities.Equipment, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Equipment, error)
	List(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error)
	ListByStatuses(ctx context.Context, statuses []entities.EquipmentStatus) ([]entities.Equipment, error)
	UpdateInTx(ctx context.Context, tx pgx.Tx, equipment *entities.Equipment) error
	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id string, status entities.EquipmentStatus) error
	DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage, logger: logger}
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	var rawStatus string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&e.ID, &e.Reference, &e.Matricule, &e.Name,
		&e.Dimensions.Height, &e.Dimensions.Width, &e.Dimensions.Length, &e.Dimensions.Weight, &e.Dimensions.Volume,
		&e.OperatingConditions.Temperature, &e.OperatingConditions.Pressure,
		&e.Location, &rawStatus,
		&e.CreatedBy, &createdAt, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования equipment: %w", err)
	}

	status, err := entities.NormalizeEquipmentStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("equipment %s: %w", e.ID, err)
	}
	e.Status = status
	e.CreatedAt = &createdAt
	e.UpdatedAt = &updatedAt
	e.Activities = []entities.Activity{}
	return &e, nil
}

func (r *EquipmentRepository) findOne(ctx context.Context, querier Querier, id string, forUpdate bool) (*entities.Equipment, error) {
	builder := psql().Select(equipmentColumns...).From(equipmentTable + " e").Where(sq.Eq{"e.id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	equipment, err := scanEquipment(querier.QueryRow(ctx, query, args...))
	if err != nil {
		// lock_timeout на FOR UPDATE превращается в ConflictError
		return nil, translatePgError(err)
	}

	activities, err := loadActivities(ctx, querier, []string{equipment.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := activities[equipment.ID]; ok {
		equipment.Activities = list
	}
	return equipment, nil
}

func (r *EquipmentRepository) FindByID(ctx context.Context, id string) (*entities.Equipment, error) {
	return r.findOne(ctx, r.storage, id, false)
}

// FindForUpdateInTx блокирует строку оборудования до конца транзакции.
// Все проверки расписания выполняются под этой блокировкой.
func (r *EquipmentRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Equipment, error) {
	return r.findOne(ctx, tx, id, true)
}

func (r *EquipmentRepository) List(ctx context.Context, filter types.Filter) ([]entities.Equipment, uint64, error) {
	// 1. COUNT
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil

	countBuilder := psql().Select("COUNT(e.id)").From(equipmentTable + " e")
	countBuilder = bd.ApplySearch(countBuilder, filter.Search, equipmentSearchColumns...)
	countBuilder = bd.ApplyListParams(countBuilder, countFilter, equipmentMap)

	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Equipment{}, 0, nil
	}

	// 2. SELECT
	baseBuilder := psql().Select(equipmentColumns...).From(equipmentTable + " e")
	baseBuilder = bd.ApplySearch(baseBuilder, filter.Search, equipmentSearchColumns...)
	baseBuilder = bd.ApplyListParams(baseBuilder, filter, equipmentMap)
	if len(filter.Sort) == 0 {
		baseBuilder = baseBuilder.OrderBy("e.created_at DESC", "e.id")
	}

	list, err := r.queryWithActivities(ctx, baseBuilder)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *EquipmentRepository) ListByStatuses(ctx context.Context, statuses []entities.EquipmentStatus) ([]entities.Equipment, error) {
	builder := psql().Select(equipmentColumns...).From(equipmentTable + " e").OrderBy("e.name", "e.id")
	if statuses != nil {
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		builder = builder.Where(sq.Eq{"e.status": values})
	}
	return r.queryWithActivities(ctx, builder)
}

func (r *EquipmentRepository) queryWithActivities(ctx context.Context, builder sq.SelectBuilder) ([]entities.Equipment, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]entities.Equipment, 0)
	ids := make([]string, 0)
	for rows.Next() {
		equipment, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *equipment)
		ids = append(ids, equipment.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	activities, err := loadActivities(ctx, r.storage, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if acts, ok := activities[list[i].ID]; ok {
			list[i].Activities = acts
		}
	}
	return list, nil
}

func (r *EquipmentRepository) CreateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error {
	query := `
		INSERT INTO equipments (id, reference, matricule, name, height, width, length, weight, volume,
			temperature, pressure, location, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := tx.Exec(ctx, query,
		e.ID, e.Reference, e.Matricule, e.Name,
		e.Dimensions.Height, e.Dimensions.Width, e.Dimensions.Length, e.Dimensions.Weight, e.Dimensions.Volume,
		e.OperatingConditions.Temperature, e.OperatingConditions.Pressure,
		e.Location, string(e.Status), e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *EquipmentRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, e *entities.Equipment) error {
	query := `
		UPDATE equipments
		SET reference = $1, matricule = $2, name = $3, height = $4, width = $5, length = $6,
		    weight = $7, volume = $8, temperature = $9, pressure = $10, location = $11,
		    status = $12, updated_at = $13
		WHERE id = $14`
	result, err := tx.Exec(ctx, query,
		e.Reference, e.Matricule, e.Name,
		e.Dimensions.Height, e.Dimensions.Width, e.Dimensions.Length, e.Dimensions.Weight, e.Dimensions.Volume,
		e.OperatingConditions.Temperature, e.OperatingConditions.Pressure,
		e.Location, string(e.Status), e.UpdatedAt, e.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *EquipmentRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, id string, status entities.EquipmentStatus) error {
	result, err := tx.Exec(ctx,
		`UPDATE equipments SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteInTx удаляет оборудование; активности удаляются каскадом.
func (r *EquipmentRepository) DeleteInTx(ctx context.Context, tx pgx.Tx, id string) error {
	result, err := tx.Exec(ctx, `DELETE FROM equipments WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
