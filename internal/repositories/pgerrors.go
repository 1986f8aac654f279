package repositories

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "petro-planning/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgExclusionViolation  = "23P01"
	pgCheckViolation      = "23514"
	pgInvalidTextRepr     = "22P02"
	pgForeignKeyViolation = "23503"
	pgLockNotAvailable    = "55P03"
	pgDeadlockDetected    = "40P01"
)

// uniqueConstraintFields - какое поле назвать в DuplicateKeyError.
var uniqueConstraintFields = map[string]string{
	"equipments_reference_key": "reference",
	"equipments_matricule_key": "matricule",
}

// translatePgError переводит ошибки PostgreSQL в доменную таксономию.
// Остальные ошибки возвращаются как есть.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		field := uniqueConstraintFields[pgErr.ConstraintName]
		if field == "" {
			field = pgErr.ConstraintName
		}
		return apperrors.NewDuplicateKeyError(field, duplicateValue(pgErr.Detail))
	case pgExclusionViolation:
		return apperrors.NewConflictError("пересечение с другой активностью оборудования")
	case pgCheckViolation:
		return apperrors.NewValidationError("нарушено ограничение %s", pgErr.ConstraintName)
	case pgInvalidTextRepr:
		return apperrors.NewValidationError("некорректное значение: %s", pgErr.Message)
	case pgLockNotAvailable, pgDeadlockDetected:
		return apperrors.NewConflictError("оборудование занято параллельной операцией, повторите попытку")
	case pgForeignKeyViolation:
		return apperrors.NewValidationError("ссылка на несуществующую запись (%s)", pgErr.ConstraintName)
	}
	return err
}

// duplicateValue извлекает значение из Detail вида
// "Key (reference)=(EQ-001) already exists.".
func duplicateValue(detail string) string {
	start := strings.Index(detail, ")=(")
	if start < 0 {
		return ""
	}
	rest := detail[start+3:]
	end := strings.LastIndex(rest, ")")
	if end < 0 {
		return rest
	}
	return rest[:end]
}
