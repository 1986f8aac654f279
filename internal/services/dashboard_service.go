package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petro-planning/internal/entities"
	"petro-planning/internal/repositories"
	"petro-planning/pkg/types"
)

const (
	defaultDashboardHorizonDays = 7
	maxDashboardHorizonDays     = 90
	upcomingPlansLimit          = 20
)

type DashboardServiceInterface interface {
	GetDashboardStats(ctx context.Context, horizonDays int) (*types.DashboardStats, error)
}

type DashboardService struct {
	repo   repositories.DashboardRepositoryInterface
	logger *zap.Logger
}

func NewDashboardService(repo repositories.DashboardRepositoryInterface, logger *zap.Logger) *DashboardService {
	return &DashboardService{repo: repo, logger: logger}
}

// GetDashboardStats собирает сводку параллельными запросами. horizonDays
// задаёт окно для ближайших планов.
func (s *DashboardService) GetDashboardStats(ctx context.Context, horizonDays int) (*types.DashboardStats, error) {
	if horizonDays <= 0 {
		horizonDays = defaultDashboardHorizonDays
	}
	if horizonDays > maxDashboardHorizonDays {
		horizonDays = maxDashboardHorizonDays
	}
	now := timeNow()

	var (
		alerts   *types.DashboardAlerts
		byStatus []types.DashboardCountByGroup
		live     []types.DashboardCountByGroup
		plans    []types.DashboardCountByGroup
		upcoming []types.DashboardUpcomingPlan
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { alerts, err = s.repo.GetAlerts(gctx, now); return })
	g.Go(func() (err error) { byStatus, err = s.repo.GetEquipmentByStatus(gctx); return })
	g.Go(func() (err error) { live, err = s.repo.GetLiveActivitiesByType(gctx); return })
	g.Go(func() (err error) { plans, err = s.repo.GetPlansByStatus(gctx); return })
	g.Go(func() (err error) {
		upcoming, err = s.repo.GetUpcomingPlans(gctx, now, now.Add(time.Duration(horizonDays)*24*time.Hour), upcomingPlansLimit)
		return
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Ошибка при сборе статистики дашборда", zap.Error(err))
		return nil, err
	}

	stats := &types.DashboardStats{
		Alerts:            *alerts,
		EquipmentByStatus: fillEquipmentStatuses(byStatus),
		LiveActivities:    live,
		PlansByStatus:     plans,
		UpcomingPlans:     upcoming,
		GeneratedAt:       now,
	}
	if stats.LiveActivities == nil {
		stats.LiveActivities = []types.DashboardCountByGroup{}
	}
	if stats.PlansByStatus == nil {
		stats.PlansByStatus = []types.DashboardCountByGroup{}
	}
	if stats.UpcomingPlans == nil {
		stats.UpcomingPlans = []types.DashboardUpcomingPlan{}
	}

	var inUse int64
	for _, group := range stats.EquipmentByStatus {
		stats.TotalEquipment += group.Count
		if group.GroupName == string(entities.EquipmentInUse) {
			inUse = group.Count
		}
	}
	if stats.TotalEquipment > 0 {
		stats.UtilizationPct = math.Round(float64(inUse)/float64(stats.TotalEquipment)*1000) / 10
	}
	return stats, nil
}

// fillEquipmentStatuses возвращает все статусы в порядке жизненного цикла,
// включая нулевые.
func fillEquipmentStatuses(rows []types.DashboardCountByGroup) []types.DashboardCountByGroup {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GroupName] += row.Count
	}
	result := make([]types.DashboardCountByGroup, 0, len(entities.AllEquipmentStatuses))
	for _, status := range entities.AllEquipmentStatuses {
		result = append(result, types.DashboardCountByGroup{GroupName: string(status), Count: counts[string(status)]})
	}
	return result
}
