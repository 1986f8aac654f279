package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petro-planning/pkg/types"
)

type fakeDashboardRepo struct {
	byStatus     []types.DashboardCountByGroup
	upcoming     []types.DashboardUpcomingPlan
	alertsErr    error
	upcomingFrom time.Time
	upcomingTo   time.Time
}

func (f *fakeDashboardRepo) GetAlerts(context.Context, time.Time) (*types.DashboardAlerts, error) {
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return &types.DashboardAlerts{OverdueActivities: 2, OutOfService: 1}, nil
}

func (f *fakeDashboardRepo) GetEquipmentByStatus(context.Context) ([]types.DashboardCountByGroup, error) {
	return f.byStatus, nil
}

func (f *fakeDashboardRepo) GetLiveActivitiesByType(context.Context) ([]types.DashboardCountByGroup, error) {
	return nil, nil
}

func (f *fakeDashboardRepo) GetPlansByStatus(context.Context) ([]types.DashboardCountByGroup, error) {
	return []types.DashboardCountByGroup{{GroupName: "scheduled", Count: 3}}, nil
}

func (f *fakeDashboardRepo) GetUpcomingPlans(_ context.Context, from, to time.Time, _ uint64) ([]types.DashboardUpcomingPlan, error) {
	f.upcomingFrom, f.upcomingTo = from, to
	return f.upcoming, nil
}

func withFixedNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = prev })
}

func TestDashboardService_Summary(t *testing.T) {
	now := day(10)
	withFixedNow(t, now)

	repo := &fakeDashboardRepo{byStatus: []types.DashboardCountByGroup{
		{GroupName: "IN_USE", Count: 3},
		{GroupName: "AVAILABLE", Count: 5},
		{GroupName: "OUT_OF_SERVICE", Count: 1},
	}}
	svc := NewDashboardService(repo, zap.NewNop())

	stats, err := svc.GetDashboardStats(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(9), stats.TotalEquipment)
	assert.Equal(t, 33.3, stats.UtilizationPct)
	assert.Equal(t, int64(2), stats.Alerts.OverdueActivities)
	assert.Equal(t, []types.DashboardCountByGroup{
		{GroupName: "AVAILABLE", Count: 5},
		{GroupName: "IN_USE", Count: 3},
		{GroupName: "MAINTENANCE", Count: 0},
		{GroupName: "REPAIR", Count: 0},
		{GroupName: "OUT_OF_SERVICE", Count: 1},
	}, stats.EquipmentByStatus)
	assert.NotNil(t, stats.LiveActivities)
	assert.NotNil(t, stats.UpcomingPlans)
	assert.Equal(t, now, repo.upcomingFrom)
	assert.Equal(t, now.Add(7*24*time.Hour), repo.upcomingTo)
}

func TestDashboardService_HorizonIsCapped(t *testing.T) {
	now := day(1)
	withFixedNow(t, now)
	repo := &fakeDashboardRepo{}

	stats, err := NewDashboardService(repo, zap.NewNop()).GetDashboardStats(context.Background(), 365)
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*24*time.Hour), repo.upcomingTo)
	assert.Zero(t, stats.UtilizationPct)
}

func TestDashboardService_PropagatesErrors(t *testing.T) {
	repo := &fakeDashboardRepo{alertsErr: errors.New("db down")}

	stats, err := NewDashboardService(repo, zap.NewNop()).GetDashboardStats(context.Background(), 7)
	assert.Error(t, err)
	assert.Nil(t, stats)
}
