package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation matches duplicate-key failures. A non-empty constraint narrows the match to that
// constraint (postgres) or that column list (sqlite).
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation &&
			(constraint == "" || strings.Contains(pgErr.ConstraintName, constraint) || strings.Contains(pgErr.Message, constraint))
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "duplicate key value"):
		return constraint == "" || strings.Contains(msg, constraint)
	default:
		return false
	}
}

func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
