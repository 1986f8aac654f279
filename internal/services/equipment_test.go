package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/events"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/types"
	"petro-planning/pkg/utils"
)

func actorCtx() context.Context {
	return utils.WithUserID(context.Background(), "planner-1")
}

func TestEquipmentService_CreateComputesVolumeAndDefaultsStatus(t *testing.T) {
	env := newTestEnv()

	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)

	assert.Equal(t, entities.EquipmentAvailable, eq.Status)
	assert.Equal(t, 100.0*50*200/1e6, eq.Dimensions.Volume)
	assert.Equal(t, "planner-1", eq.CreatedBy)
	assert.Empty(t, eq.Activities)
	require.NotNil(t, env.store.equipmentByID(eq.ID))

	require.Len(t, env.notifier.equipment, 1)
	assert.Equal(t, events.EquipmentCreated, env.notifier.equipment[0].EventName)
}

func TestEquipmentService_CreateNormalizesLegacyStatus(t *testing.T) {
	env := newTestEnv()

	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO("working_non_disponible"))
	require.NoError(t, err)
	assert.Equal(t, entities.EquipmentInUse, eq.Status)
}

func TestEquipmentService_CreateRejectsInvalidInput(t *testing.T) {
	env := newTestEnv()

	data := newEquipmentDTO("")
	data.Name = ""
	data.Dimensions.Height = fp(0)

	_, err := env.equipment.Create(actorCtx(), data)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	details := apperrors.DetailsOf(err)
	assert.Contains(t, details, "CreateEquipmentDTO.Name")
	assert.Contains(t, details, "CreateEquipmentDTO.Dimensions.Height")
}

func TestEquipmentService_CreateDuplicateReference(t *testing.T) {
	env := newTestEnv()

	first := newEquipmentDTO("")
	_, err := env.equipment.Create(actorCtx(), first)
	require.NoError(t, err)

	second := newEquipmentDTO("")
	second.Reference = first.Reference
	_, err = env.equipment.Create(actorCtx(), second)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
}

func TestEquipmentService_GetByID(t *testing.T) {
	env := newTestEnv()
	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)

	t.Run("найдено и закешировано", func(t *testing.T) {
		got, err := env.equipment.GetByID(context.Background(), eq.ID)
		require.NoError(t, err)
		assert.Equal(t, eq.Reference, got.Reference)
		assert.True(t, env.cache.has(equipmentCacheKey(eq.ID)))
	})

	t.Run("отсутствует", func(t *testing.T) {
		got, err := env.equipment.GetByID(context.Background(), uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("некорректный id", func(t *testing.T) {
		_, err := env.equipment.GetByID(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, apperrors.ErrInvalidID)
	})
}

func TestEquipmentService_ListNormalizesStatusFilter(t *testing.T) {
	env := newTestEnv()
	_, err := env.equipment.Create(actorCtx(), newEquipmentDTO("disponible"))
	require.NoError(t, err)
	_, err = env.equipment.Create(actorCtx(), newEquipmentDTO("on_repair"))
	require.NoError(t, err)

	items, total, err := env.equipment.List(context.Background(), types.Filter{
		Filter: map[string]interface{}{"status": "disponible_bon_etat"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, entities.EquipmentAvailable, items[0].Status)

	_, _, err = env.equipment.List(context.Background(), types.Filter{
		Filter: map[string]interface{}{"status": "broken"},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEquipmentService_UpdateRecomputesVolumeAndInvalidatesCache(t *testing.T) {
	env := newTestEnv()
	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)
	_, err = env.equipment.GetByID(context.Background(), eq.ID)
	require.NoError(t, err)
	require.True(t, env.cache.has(equipmentCacheKey(eq.ID)))

	updated, err := env.equipment.Update(actorCtx(), eq.ID, dto.UpdateEquipmentDTO{
		Dimensions: &dto.UpdateDimensionsDTO{Height: fp(200)},
		Status:     sp("en_maintenance"),
	})
	require.NoError(t, err)

	assert.Equal(t, 200.0*50*200/1e6, updated.Dimensions.Volume)
	assert.Equal(t, entities.EquipmentMaintenance, updated.Status)
	assert.False(t, env.cache.has(equipmentCacheKey(eq.ID)))

	stored := env.store.equipmentByID(eq.ID)
	assert.Equal(t, entities.EquipmentMaintenance, stored.Status)

	history := env.store.historyFor(eq.ID)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsStatusChange)
	assert.Equal(t, entities.EquipmentAvailable, *history[0].FromStatus)
	assert.Equal(t, entities.EquipmentMaintenance, *history[0].ToStatus)
}

func TestEquipmentService_UpdateMissing(t *testing.T) {
	env := newTestEnv()

	_, err := env.equipment.Update(actorCtx(), uuid.NewString(), dto.UpdateEquipmentDTO{Name: sp("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEquipmentService_ChangeStatus(t *testing.T) {
	env := newTestEnv()
	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)

	updated, err := env.equipment.ChangeStatus(actorCtx(), eq.ID, dto.ChangeEquipmentStatusDTO{
		Status: "hors_service",
		Reason: sp("Трещина корпуса"),
	})
	require.NoError(t, err)
	assert.Equal(t, entities.EquipmentOutOfService, updated.Status)

	history := env.store.historyFor(eq.ID)
	require.Len(t, history, 1)
	assert.Equal(t, "Трещина корпуса", *history[0].Reason)
	assert.Equal(t, "planner-1", history[0].CreatedBy)

	// Повтор того же статуса журнал не трогает.
	_, err = env.equipment.ChangeStatus(actorCtx(), eq.ID, dto.ChangeEquipmentStatusDTO{Status: "OUT_OF_SERVICE"})
	require.NoError(t, err)
	assert.Len(t, env.store.historyFor(eq.ID), 1)

	last := env.notifier.equipment[len(env.notifier.equipment)-1]
	assert.Equal(t, events.EquipmentStatusChanged, last.EventName)
}

func TestEquipmentService_DeleteRemovesHistory(t *testing.T) {
	env := newTestEnv()
	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)
	_, err = env.equipment.ChangeStatus(actorCtx(), eq.ID, dto.ChangeEquipmentStatusDTO{Status: "REPAIR"})
	require.NoError(t, err)
	require.NotEmpty(t, env.store.historyFor(eq.ID))

	deleted, err := env.equipment.Delete(actorCtx(), eq.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Nil(t, env.store.equipmentByID(eq.ID))
	assert.Empty(t, env.store.historyFor(eq.ID))

	again, err := env.equipment.Delete(actorCtx(), eq.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestEquipmentService_DeleteDetachesPlans(t *testing.T) {
	env := newTestEnv()
	eq := createEquipment(t, env, "AVAILABLE")
	placement, err := env.plans.CreatePlan(actorCtx(), planDTO("placement", eq.ID, 1, 3))
	require.NoError(t, err)
	custom, err := env.plans.CreatePlan(actorCtx(), planDTO("custom", eq.ID, 5, 6))
	require.NoError(t, err)

	_, err = env.equipment.Delete(actorCtx(), eq.ID)
	require.NoError(t, err)

	raw := env.store.rawPlan(placement.ID)
	assert.Nil(t, raw.EquipmentID)
	assert.Nil(t, raw.ActivityID)
	assert.Equal(t, entities.PlanCancelled, raw.Status)
	_, err = env.plans.UpdatePlan(actorCtx(), placement.ID, dto.UpdatePlanDTO{Title: sp("renamed")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	raw = env.store.rawPlan(custom.ID)
	assert.Nil(t, raw.EquipmentID)
	assert.Equal(t, entities.PlanScheduled, raw.Status)
	updated, err := env.plans.UpdatePlan(actorCtx(), custom.ID, dto.UpdatePlanDTO{Title: sp("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
}

func TestEquipmentService_GetHistoryFiltersByType(t *testing.T) {
	env := newTestEnv()
	eq, err := env.equipment.Create(actorCtx(), newEquipmentDTO(""))
	require.NoError(t, err)
	_, err = env.plans.CreatePlan(actorCtx(), planDTO("placement", eq.ID, 1, 5))
	require.NoError(t, err)
	_, err = env.equipment.ChangeStatus(actorCtx(), eq.ID, dto.ChangeEquipmentStatusDTO{Status: "IN_USE"})
	require.NoError(t, err)

	all, err := env.equipment.GetHistory(context.Background(), eq.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	statusOnly, err := env.equipment.GetHistory(context.Background(), eq.ID, sp(entities.HistoryTypeStatusChange))
	require.NoError(t, err)
	require.Len(t, statusOnly, 1)
	assert.True(t, statusOnly[0].IsStatusChange)
}
