package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/pkg/contextkeys"
)

const ActorHeader = "X-User-ID"

// ActorMiddleware переносит идентификатор автора изменений из заголовка
// в контекст запроса. Аутентификация выполняется не здесь.
type ActorMiddleware struct {
	logger *zap.Logger
}

func NewActorMiddleware(logger *zap.Logger) *ActorMiddleware {
	return &ActorMiddleware{logger: logger}
}

func (m *ActorMiddleware) Actor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor := strings.TrimSpace(c.Request().Header.Get(ActorHeader))
		if actor == "" {
			return next(c)
		}

		ctx := context.WithValue(c.Request().Context(), contextkeys.UserIDKey, actor)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(string(contextkeys.UserIDKey), actor)

		return next(c)
	}
}
