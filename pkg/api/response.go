package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "petro-planning/pkg/errors"
)

// Response - единый конверт ответа API.
type Response[T any] struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    T           `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type ListBody[T any] struct {
	List       []T             `json:"list"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

type PaginationMeta struct {
	TotalCount uint64 `json:"totalCount"`
	TotalPages int    `json:"totalPages"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// SuccessOne - для возврата одного объекта
func SuccessOne[T any](c echo.Context, code int, message string, data T) error {
	return c.JSON(code, Response[T]{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessList[T any](c echo.Context, message string, list []T, total uint64, page, limit int) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + uint64(limit) - 1) / uint64(limit))
	}

	if list == nil {
		list = make([]T, 0)
	}

	return c.JSON(http.StatusOK, Response[ListBody[T]]{
		Success: true,
		Message: message,
		Data: ListBody[T]{
			List: list,
			Pagination: &PaginationMeta{
				TotalCount: total,
				TotalPages: totalPages,
				Page:       page,
				Limit:      limit,
			},
		},
	})
}

// NotFound - явный сигнал "не найдено" для читающих эндпоинтов.
func NotFound(c echo.Context, entity, id string) error {
	return ErrorResponse(c, apperrors.NewNotFoundError(entity, id), nil)
}

// ErrorResponse сопоставляет ошибку с HTTP-кодом и пишет конверт с success=false.
// Внутренние ошибки логируются, пользователю уходит общее сообщение.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		err = apperrors.NewFieldValidationError("Ошибка валидации входных данных", fields)
	}

	code := apperrors.StatusCode(err)
	msg := err.Error()
	var details interface{}

	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		msg = httpErr.Message
		details = httpErr.Details
	} else if d := apperrors.DetailsOf(err); len(d) > 0 {
		details = d
	}

	if code >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("Внутренняя ошибка при обработке запроса",
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		msg = "Внутренняя ошибка сервера"
		details = nil
	}

	return c.JSON(code, Response[any]{
		Success: false,
		Error:   msg,
		Details: details,
	})
}
