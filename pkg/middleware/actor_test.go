package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"petro-planning/pkg/utils"
)

func TestActorMiddleware(t *testing.T) {
	e := echo.New()
	mw := NewActorMiddleware(zap.NewNop())

	var seen string
	handler := mw.Actor(func(c echo.Context) error {
		seen = utils.GetUserIDFromCtx(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, " planner-7 ")
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, "planner-7", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, utils.SystemActor, seen)
}
