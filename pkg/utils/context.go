package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestContext - контекст запроса с ограничением на операции записи.
// Отмена клиентом прерывает транзакцию так же, как и таймаут.
func RequestContext(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), timeout)
}
