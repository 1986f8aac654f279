package routes

import (
	"github.com/labstack/echo/v4"

	"petro-planning/internal/controllers"
)

func runPlanRouter(api *echo.Group, ctrl *controllers.PlanController) {
	plans := api.Group("/plans")
	plans.GET("", ctrl.GetPlans)
	plans.POST("", ctrl.CreatePlan)
	plans.GET("/available-equipment", ctrl.GetAvailableEquipment)
	plans.GET("/:id", ctrl.FindPlan)
	plans.PUT("/:id", ctrl.UpdatePlan)
	plans.DELETE("/:id", ctrl.DeletePlan)
}
