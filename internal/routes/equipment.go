package routes

import (
	"github.com/labstack/echo/v4"

	"petro-planning/internal/controllers"
)

func runEquipmentRouter(api *echo.Group, ctrl *controllers.EquipmentController) {
	equipment := api.Group("/equipment")
	equipment.GET("", ctrl.GetEquipments)
	equipment.POST("", ctrl.CreateEquipment)
	equipment.POST("/import", ctrl.ImportEquipment)
	equipment.GET("/:id", ctrl.FindEquipment)
	equipment.PUT("/:id", ctrl.UpdateEquipment)
	equipment.DELETE("/:id", ctrl.DeleteEquipment)
	equipment.PATCH("/:id/status", ctrl.ChangeStatus)
	equipment.GET("/:id/history", ctrl.GetHistory)
	equipment.POST("/:id/activities", ctrl.AddActivity)
	equipment.POST("/:id/activities/:activityId/start", ctrl.StartActivity)
	equipment.POST("/:id/activities/:activityId/complete", ctrl.CompleteActivity)
}
