package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// Violation returns the constraint name when err is a unique or check
// constraint failure.
func Violation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch pgErr.Code {
	case codeUniqueViolation, codeCheckViolation:
		return pgErr.ConstraintName, true
	}
	return "", false
}
