package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/pkg/utils"
	appwebsocket "petro-planning/pkg/websocket"
)

type WebSocketController struct {
	hub      *appwebsocket.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketController: allowedOrigins пуст или содержит "*" - принимается любой Origin.
func NewWebSocketController(hub *appwebsocket.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWs - поток уведомлений. Личные уведомления приходят по userId
// (query) или X-User-ID; без них клиент получает только общую рассылку.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	userID := strings.TrimSpace(ctx.QueryParam("userId"))
	if userID == "" {
		userID = utils.GetUserIDFromCtx(ctx.Request().Context())
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(c.hub, conn, userID)
	if !c.hub.Add(client) {
		conn.Close()
		return nil
	}

	go client.Serve()

	c.logger.Info("WebSocket: клиент подключен", zap.String("userID", userID))
	return nil
}
