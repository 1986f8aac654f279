package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"petro-planning/pkg/types"
)

type DashboardRepositoryInterface interface {
	GetAlerts(ctx context.Context, now time.Time) (*types.DashboardAlerts, error)
	GetEquipmentByStatus(ctx context.Context) ([]types.DashboardCountByGroup, error)
	GetLiveActivitiesByType(ctx context.Context) ([]types.DashboardCountByGroup, error)
	GetPlansByStatus(ctx context.Context) ([]types.DashboardCountByGroup, error)
	GetUpcomingPlans(ctx context.Context, from, to time.Time, limit uint64) ([]types.DashboardUpcomingPlan, error)
}

type DashboardRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewDashboardRepository(storage *pgxpool.Pool, logger *zap.Logger) DashboardRepositoryInterface {
	return &DashboardRepository{storage: storage, logger: logger}
}

var liveActivityStatuses = []string{"SCHEDULED", "IN_PROGRESS"}

func (r *DashboardRepository) GetAlerts(ctx context.Context, now time.Time) (*types.DashboardAlerts, error) {
	overdue := sq.Select("COUNT(*)").
		From("equipment_activities a").
		Where(sq.Eq{"a.status": liveActivityStatuses}).
		Where(sq.Lt{"a.end_date": now})

	b := sq.Select().
		Column(sq.Alias(overdue, "overdue")).
		Column("COUNT(CASE WHEN e.status = 'OUT_OF_SERVICE' THEN 1 END)").
		From("equipments e")
	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	stats := &types.DashboardAlerts{}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&stats.OverdueActivities, &stats.OutOfService); err != nil {
		return nil, fmt.Errorf("dashboard alerts: %w", err)
	}
	return stats, nil
}

func (r *DashboardRepository) GetEquipmentByStatus(ctx context.Context) ([]types.DashboardCountByGroup, error) {
	b := sq.Select("e.status as group_name", "COUNT(*) as count").
		From("equipments e").
		GroupBy("e.status")
	return r.countByGroup(ctx, b)
}

func (r *DashboardRepository) GetLiveActivitiesByType(ctx context.Context) ([]types.DashboardCountByGroup, error) {
	b := sq.Select("a.type as group_name", "COUNT(*) as count").
		From("equipment_activities a").
		Where(sq.Eq{"a.status": liveActivityStatuses}).
		GroupBy("a.type").
		OrderBy("count DESC")
	return r.countByGroup(ctx, b)
}

func (r *DashboardRepository) GetPlansByStatus(ctx context.Context) ([]types.DashboardCountByGroup, error) {
	b := sq.Select("p.status as group_name", "COUNT(*) as count").
		From("plans p").
		Where(sq.Eq{"p.is_deleted": false}).
		GroupBy("p.status")
	return r.countByGroup(ctx, b)
}

func (r *DashboardRepository) GetUpcomingPlans(ctx context.Context, from, to time.Time, limit uint64) ([]types.DashboardUpcomingPlan, error) {
	b := sq.Select("p.id", "p.title", "p.type", "p.start_date", "p.end_date", "p.equipment_id", "e.reference").
		From("plans p").
		LeftJoin("equipments e ON e.id = p.equipment_id").
		Where(sq.Eq{"p.is_deleted": false}).
		Where(sq.Eq{"p.status": "scheduled"}).
		Where(sq.GtOrEq{"p.start_date": from}).
		Where(sq.LtOrEq{"p.start_date": to}).
		OrderBy("p.start_date ASC").
		Limit(limit)

	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dashboard upcoming plans: %w", err)
	}
	defer rows.Close()

	result := make([]types.DashboardUpcomingPlan, 0)
	for rows.Next() {
		var p types.DashboardUpcomingPlan
		if err := rows.Scan(&p.ID, &p.Title, &p.Type, &p.StartDate, &p.EndDate, &p.EquipmentID, &p.EquipmentReference); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *DashboardRepository) countByGroup(ctx context.Context, b sq.SelectBuilder) ([]types.DashboardCountByGroup, error) {
	query, args, err := b.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Ошибка запроса статистики", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[types.DashboardCountByGroup])
}
