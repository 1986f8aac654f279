package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/internal/services"
	"petro-planning/pkg/api"
)

type DashboardController struct {
	dashboardService services.DashboardServiceInterface
	logger           *zap.Logger
}

func NewDashboardController(ds services.DashboardServiceInterface, logger *zap.Logger) *DashboardController {
	return &DashboardController{dashboardService: ds, logger: logger}
}

// GetDashboardStats: ?days=N - горизонт ближайших планов.
func (ctrl *DashboardController) GetDashboardStats(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))

	stats, err := ctrl.dashboardService.GetDashboardStats(c.Request().Context(), days)
	if err != nil {
		return api.ErrorResponse(c, err, ctrl.logger)
	}
	return api.SuccessOne(c, http.StatusOK, "Сводка по парку оборудования получена", stats)
}
