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
)

const planTable = "plans"

var planColumns = []string{
	"p.id", "p.title", "p.description", "p.start_date", "p.end_date", "p.type", "p.custom_type_name",
	"p.status", "p.project_id", "p.equipment_id", "p.activity_id", "p.location",
	"p.responsible_name", "p.responsible_email", "p.responsible_phone", "p.responsible_user_id",
	"p.notes", "p.created_by", "p.updated_by", "p.is_deleted", "p.deleted_at", "p.deleted_by",
	"p.created_at", "p.updated_at",
}

// PlanFilter - условия выборки планов. Удалённые планы не возвращаются никогда.
type PlanFilter struct {
	EquipmentID *string
	ProjectID   *string
	Type        *entities.PlanType
	Status      *entities.PlanStatus
	From        *time.Time
	To          *time.Time
	Search      string
	Limit       int
	Offset      int
}

type PlanRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, plan *entities.Plan) error
	UpdateInTx(ctx context.Context, tx pgx.Tx, plan *entities.Plan) error
	FindByID(ctx context.Context, id string) (*entities.Plan, error)
	FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Plan, error)
	List(ctx context.Context, filter PlanFilter) ([]entities.Plan, uint64, error)
	EquipmentIDsByProject(ctx context.Context, projectID string) ([]string, error)
	FindByActivityForUpdateInTx(ctx context.Context, tx pgx.Tx, activityID string) (*entities.Plan, error)
	DetachEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID, actor string) (int64, error)
}

type PlanRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewPlanRepository(storage *pgxpool.Pool, logger *zap.Logger) PlanRepositoryInterface {
	return &PlanRepository{storage: storage, logger: logger}
}

func scanPlan(row pgx.Row) (*entities.Plan, error) {
	var p entities.Plan
	var planType, status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.StartDate, &p.EndDate, &planType, &p.CustomTypeName,
		&status, &p.ProjectID, &p.EquipmentID, &p.ActivityID, &p.Location,
		&p.ResponsiblePerson.Name, &p.ResponsiblePerson.Email, &p.ResponsiblePerson.Phone, &p.ResponsiblePerson.UserID,
		&p.Notes, &p.CreatedBy, &p.UpdatedBy, &p.IsDeleted, &p.DeletedAt, &p.DeletedBy,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования plan: %w", err)
	}

	p.Type = entities.PlanType(planType)
	p.Status = entities.PlanStatus(status)
	p.CreatedAt = &createdAt
	p.UpdatedAt = &updatedAt
	return &p, nil
}

func activePlans() sq.SelectBuilder {
	return psql().Select(planColumns...).From(planTable + " p").Where(sq.Eq{"p.is_deleted": false})
}

func (r *PlanRepository) findOne(ctx context.Context, querier Querier, id string, forUpdate bool) (*entities.Plan, error) {
	builder := activePlans().Where(sq.Eq{"p.id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	return scanPlan(querier.QueryRow(ctx, query, args...))
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*entities.Plan, error) {
	return r.findOne(ctx, r.storage, id, false)
}

func (r *PlanRepository) FindForUpdateInTx(ctx context.Context, tx pgx.Tx, id string) (*entities.Plan, error) {
	return r.findOne(ctx, tx, id, true)
}

// FindByActivityForUpdateInTx - план, проецирующий активность. ErrNotFound,
// если активность создана вне планов.
func (r *PlanRepository) FindByActivityForUpdateInTx(ctx context.Context, tx pgx.Tx, activityID string) (*entities.Plan, error) {
	query, args, err := activePlans().Where(sq.Eq{"p.activity_id": activityID}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	return scanPlan(tx.QueryRow(ctx, query, args...))
}

// DetachEquipmentInTx отвязывает планы от удаляемого оборудования. Живые
// стандартные планы теряют активность вместе с оборудованием и отменяются.
func (r *PlanRepository) DetachEquipmentInTx(ctx context.Context, tx pgx.Tx, equipmentID, actor string) (int64, error) {
	result, err := tx.Exec(ctx, `
		UPDATE plans
		SET status = CASE
		        WHEN type <> $2 AND status IN ($3, $4) THEN $5
		        ELSE status
		    END,
		    equipment_id = NULL,
		    activity_id = NULL,
		    updated_by = $6,
		    updated_at = NOW()
		WHERE equipment_id = $1 AND is_deleted = FALSE`,
		equipmentID, string(entities.PlanCustom),
		string(entities.PlanScheduled), string(entities.PlanInProgress), string(entities.PlanCancelled),
		actor,
	)
	if err != nil {
		return 0, translatePgError(err)
	}
	return result.RowsAffected(), nil
}

func applyPlanFilter(b sq.SelectBuilder, f PlanFilter) sq.SelectBuilder {
	if f.EquipmentID != nil {
		b = b.Where(sq.Eq{"p.equipment_id": *f.EquipmentID})
	}
	if f.ProjectID != nil {
		b = b.Where(sq.Eq{"p.project_id": *f.ProjectID})
	}
	if f.Type != nil {
		b = b.Where(sq.Eq{"p.type": string(*f.Type)})
	}
	if f.Status != nil {
		b = b.Where(sq.Eq{"p.status": string(*f.Status)})
	}
	// Окно дат: план пересекается с [From, To].
	if f.From != nil {
		b = b.Where(sq.GtOrEq{"p.end_date": *f.From})
	}
	if f.To != nil {
		b = b.Where(sq.LtOrEq{"p.start_date": *f.To})
	}
	return bd.ApplySearch(b, f.Search, "p.title", "p.description", "p.notes")
}

func (r *PlanRepository) List(ctx context.Context, filter PlanFilter) ([]entities.Plan, uint64, error) {
	countBuilder := applyPlanFilter(
		psql().Select("COUNT(p.id)").From(planTable+" p").Where(sq.Eq{"p.is_deleted": false}),
		filter,
	)
	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.Plan{}, 0, nil
	}

	builder := applyPlanFilter(activePlans(), filter).OrderBy("p.start_date ASC", "p.id")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	plans := make([]entities.Plan, 0, filter.Limit)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, *p)
	}
	return plans, total, rows.Err()
}

// EquipmentIDsByProject - оборудование, задействованное в неудалённых планах проекта.
func (r *PlanRepository) EquipmentIDsByProject(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.storage.Query(ctx, `
		SELECT DISTINCT equipment_id::text
		FROM plans
		WHERE project_id = $1 AND is_deleted = FALSE AND equipment_id IS NOT NULL`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PlanRepository) CreateInTx(ctx context.Context, tx pgx.Tx, p *entities.Plan) error {
	query := `
		INSERT INTO plans (id, title, description, start_date, end_date, type, custom_type_name, status,
			project_id, equipment_id, activity_id, location, responsible_name, responsible_email,
			responsible_phone, responsible_user_id, notes, created_by, updated_by, is_deleted,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, FALSE, $20, $21)`
	_, err := tx.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.StartDate, p.EndDate, string(p.Type), p.CustomTypeName, string(p.Status),
		p.ProjectID, p.EquipmentID, p.ActivityID, p.Location, p.ResponsiblePerson.Name, p.ResponsiblePerson.Email,
		p.ResponsiblePerson.Phone, p.ResponsiblePerson.UserID, p.Notes, p.CreatedBy, p.UpdatedBy,
		p.CreatedAt, p.UpdatedAt,
	)
	return translatePgError(err)
}

func (r *PlanRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, p *entities.Plan) error {
	query := `
		UPDATE plans
		SET title = $1, description = $2, start_date = $3, end_date = $4, type = $5, custom_type_name = $6,
		    status = $7, project_id = $8, equipment_id = $9, activity_id = $10, location = $11,
		    responsible_name = $12, responsible_email = $13, responsible_phone = $14, responsible_user_id = $15,
		    notes = $16, updated_by = $17, is_deleted = $18, deleted_at = $19, deleted_by = $20, updated_at = $21
		WHERE id = $22`
	result, err := tx.Exec(ctx, query,
		p.Title, p.Description, p.StartDate, p.EndDate, string(p.Type), p.CustomTypeName,
		string(p.Status), p.ProjectID, p.EquipmentID, p.ActivityID, p.Location,
		p.ResponsiblePerson.Name, p.ResponsiblePerson.Email, p.ResponsiblePerson.Phone, p.ResponsiblePerson.UserID,
		p.Notes, p.UpdatedBy, p.IsDeleted, p.DeletedAt, p.DeletedBy, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("План", p.ID)
	}
	return nil
}
