package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Виды ошибок доменного ядра. Проверяются через errors.Is.
var (
	ErrValidation   = errors.New("ошибка валидации")
	ErrDuplicateKey = errors.New("запись с таким ключом уже существует")
	ErrNotFound     = errors.New("запись не найдена")
	ErrInvalidID    = errors.New("некорректный идентификатор")
	ErrInvalidState = errors.New("недопустимое состояние")
	ErrConflict     = errors.New("конфликт расписания")

	ErrBadRequest = errors.New("неверный запрос")
)

// AppError несёт вид ошибки, сообщение для пользователя и детали.
type AppError struct {
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Kind }

func newAppError(kind error, details map[string]interface{}, format string, args ...interface{}) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Details: details}
}

func NewValidationError(format string, args ...interface{}) error {
	return newAppError(ErrValidation, nil, format, args...)
}

// NewFieldValidationError - ошибка валидации с перечнем полей в деталях.
func NewFieldValidationError(message string, fields map[string]string) error {
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return &AppError{Kind: ErrValidation, Message: message, Details: details}
}

func NewDuplicateKeyError(field, value string) error {
	return newAppError(ErrDuplicateKey, map[string]interface{}{"field": field, "value": value},
		"значение '%s' поля %s уже используется", value, field)
}

func NewNotFoundError(entity, id string) error {
	return newAppError(ErrNotFound, map[string]interface{}{"entity": entity, "id": id},
		"%s с ID %s не найден(а)", entity, id)
}

func NewInvalidIDError(id string) error {
	return newAppError(ErrInvalidID, map[string]interface{}{"id": id},
		"некорректный идентификатор: '%s'", id)
}

func NewInvalidStateError(format string, args ...interface{}) error {
	return newAppError(ErrInvalidState, nil, format, args...)
}

func NewConflictError(format string, args ...interface{}) error {
	return newAppError(ErrConflict, nil, format, args...)
}

// DetailsOf возвращает детали AppError, если они есть.
func DetailsOf(err error) map[string]interface{} {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

// HttpError - ошибка уровня контроллера с уже выбранным HTTP-кодом.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, ctx map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: ctx}
}

// StatusCode сопоставляет вид ошибки с HTTP-кодом. Дубликат ключа в
// список 400 не входит и отдаётся как 500.
func StatusCode(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
