package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE class 23, unique_violation.
const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether err came from a unique index rejecting
// the write. When constraintName is given, the violation must name it. The
// message fallback covers the sqlite driver used by in-memory test DBs.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	if constraintName != "" && strings.Contains(err.Error(), constraintName) {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraintName == ""
	}
	if constraintName != "" {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
