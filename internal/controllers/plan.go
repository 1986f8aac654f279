package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/services"
	"petro-planning/pkg/api"
	"petro-planning/pkg/utils"
)

type PlanController struct {
	planService         services.PlanServiceInterface
	availabilityService services.AvailabilityServiceInterface
	logger              *zap.Logger
}

func NewPlanController(
	planService services.PlanServiceInterface,
	availabilityService services.AvailabilityServiceInterface,
	logger *zap.Logger,
) *PlanController {
	return &PlanController{
		planService:         planService,
		availabilityService: availabilityService,
		logger:              logger,
	}
}

func optionalParam(ctx echo.Context, name string) *string {
	if v := strings.TrimSpace(ctx.QueryParam(name)); v != "" {
		return &v
	}
	return nil
}

func (c *PlanController) CreatePlan(ctx echo.Context) error {
	var data dto.CreatePlanDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.planService.CreatePlan(reqCtx, data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "План успешно создан", res)
}

func (c *PlanController) GetPlans(ctx echo.Context) error {
	filter := dto.PlanFilterDTO{
		EquipmentID: optionalParam(ctx, "equipmentId"),
		ProjectID:   optionalParam(ctx, "projectId"),
		Type:        optionalParam(ctx, "type"),
		Status:      optionalParam(ctx, "status"),
		Search:      ctx.QueryParam("search"),
		Page:        1,
		Limit:       utils.DefaultLimit,
	}
	if p, err := strconv.Atoi(ctx.QueryParam("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && l > 0 && l <= utils.MaxLimit {
		filter.Limit = l
	}
	var err error
	if filter.From, err = utils.ParseOptionalDate("from", ctx.QueryParam("from")); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if filter.To, err = utils.ParseOptionalDate("to", ctx.QueryParam("to")); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	res, total, err := c.planService.GetPlans(ctx.Request().Context(), filter)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "Список планов получен", res, total, filter.Page, filter.Limit)
}

func (c *PlanController) FindPlan(ctx echo.Context) error {
	res, err := c.planService.GetPlanByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "План найден", res)
}

func (c *PlanController) UpdatePlan(ctx echo.Context) error {
	var data dto.UpdatePlanDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.planService.UpdatePlan(reqCtx, ctx.Param("id"), data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "План успешно обновлён", res)
}

func (c *PlanController) DeletePlan(ctx echo.Context) error {
	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	if err := c.planService.DeletePlan(reqCtx, ctx.Param("id")); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne[any](ctx, http.StatusOK, "План удалён", nil)
}

// GetAvailableEquipment: ?startDate=&endDate=&type=&projectId=
func (c *PlanController) GetAvailableEquipment(ctx echo.Context) error {
	start, err := utils.ParseDate("startDate", ctx.QueryParam("startDate"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	end, err := utils.ParseDate("endDate", ctx.QueryParam("endDate"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.availabilityService.GetAvailableEquipment(ctx.Request().Context(), dto.AvailabilityQueryDTO{
		StartDate: start,
		EndDate:   end,
		Type:      ctx.QueryParam("type"),
		ProjectID: optionalParam(ctx, "projectId"),
	})
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "Доступное оборудование", res, uint64(len(res)), 1, len(res))
}
