package db

import (
	"errors"
	"strings"

	"org-directory/pkg/shared"

	"github.com/mattn/go-sqlite3"
)

// ClassifyError converts SQLite constraint violations into classified
// application errors. Anything else, including already classified
// errors, is returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *shared.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}

	detail := constraintDetail(sqliteErr)

	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return &shared.AppError{
			Code:    shared.CodeConflict,
			Message: "duplicate value for " + detail,
			Err:     err,
		}
	case sqlite3.ErrConstraintForeignKey:
		return &shared.AppError{
			Code:    shared.CodeNotFound,
			Message: "referenced entity does not exist",
			Err:     err,
		}
	default:
		return &shared.AppError{
			Code:    shared.CodeValidation,
			Message: "constraint violated: " + detail,
			Err:     err,
		}
	}
}

// constraintDetail extracts the column list from messages such as
// "UNIQUE constraint failed: buildings.latitude, buildings.longitude".
func constraintDetail(err sqlite3.Error) string {
	msg := err.Error()
	if i := strings.Index(msg, "constraint failed: "); i >= 0 {
		return msg[i+len("constraint failed: "):]
	}
	return msg
}
