package routes

import (
	"github.com/labstack/echo/v4"

	"petro-planning/internal/controllers"
)

func runDashboardRouter(api *echo.Group, ctrl *controllers.DashboardController) {
	api.GET("/dashboard", ctrl.GetDashboardStats)
}
