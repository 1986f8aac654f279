package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	apperrors "petro-planning/pkg/errors"
)

func equipmentIDs(list []entities.Equipment) []string {
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestAvailabilityService_FiltersByStatusGate(t *testing.T) {
	env := newTestEnv()
	available := createEquipment(t, env, "AVAILABLE")
	inUse := createEquipment(t, env, "IN_USE")
	broken := createEquipment(t, env, "OUT_OF_SERVICE")

	placement, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(1), EndDate: day(3), Type: "placement",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{available.ID}, equipmentIDs(placement))

	repair, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(1), EndDate: day(3), Type: "REPAIR",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{available.ID, inUse.ID}, equipmentIDs(repair))

	custom, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(1), EndDate: day(3), Type: "custom",
	})
	require.NoError(t, err)
	assert.Contains(t, equipmentIDs(custom), broken.ID)
}

func TestAvailabilityService_KeepsBusyEquipmentWithActivities(t *testing.T) {
	env := newTestEnv()
	eq := createEquipment(t, env, "AVAILABLE")
	_, err := env.plans.CreatePlan(actorCtx(), planDTO("placement", eq.ID, 1, 10))
	require.NoError(t, err)

	result, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(2), EndDate: day(4), Type: "placement",
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Len(t, result[0].Activities, 1)
}

func TestAvailabilityService_ProjectEquipmentFirst(t *testing.T) {
	env := newTestEnv()
	first := createEquipment(t, env, "")
	second := createEquipment(t, env, "")
	third := createEquipment(t, env, "")

	projectID := uuid.NewString()
	data := planDTO("repair", third.ID, 1, 2)
	data.ProjectID = &projectID
	_, err := env.plans.CreatePlan(actorCtx(), data)
	require.NoError(t, err)

	result, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(5), EndDate: day(6), Type: "maintenance", ProjectID: &projectID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{third.ID, first.ID, second.ID}, equipmentIDs(result))
}

func TestAvailabilityService_Validation(t *testing.T) {
	env := newTestEnv()

	_, err := env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(5), EndDate: day(1), Type: "placement",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(1), EndDate: day(2), Type: "drilling",
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.availability.GetAvailableEquipment(context.Background(), dto.AvailabilityQueryDTO{
		StartDate: day(1), EndDate: day(2), Type: "repair", ProjectID: sp("proj"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidID)
}

func TestPrioritizeByUsage_IsStable(t *testing.T) {
	list := []entities.Equipment{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	got := PrioritizeByUsage(list, []string{"d", "b", "x"})
	assert.Equal(t, []string{"b", "d", "a", "c"}, equipmentIDs(got))

	assert.Equal(t, list, PrioritizeByUsage(list, nil))
}
