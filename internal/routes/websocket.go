package routes

import (
	"github.com/labstack/echo/v4"

	"petro-planning/internal/controllers"
)

func runWebSocketRouter(e *echo.Echo, ctrl *controllers.WebSocketController) {
	e.GET("/ws", ctrl.ServeWs)
}
