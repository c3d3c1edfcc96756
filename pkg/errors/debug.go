package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostic flattens an error chain for structured logging. Postgres
// driver errors contribute their SQLSTATE and constraint details whether
// they came through pgx or lib/pq.
type Diagnostic struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Diagnose walks the error chain and collects everything worth logging.
func Diagnose(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}

	diag := Diagnostic{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		diag.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		diag.Chain = append(diag.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		diag.PGCode = pgxErr.Code
		diag.PGConstraint = pgxErr.ConstraintName
		diag.PGTable = pgxErr.TableName
		diag.PGColumn = pgxErr.ColumnName
		diag.PGDetail = pgxErr.Detail
		diag.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		diag.PGCode = string(pqErr.Code)
		diag.PGConstraint = pqErr.Constraint
		diag.PGTable = pqErr.Table
		diag.PGColumn = pqErr.Column
		diag.PGDetail = pqErr.Detail
		diag.PGMessage = pqErr.Message
	}
	return diag
}

// LogFields renders the diagnostic as logger fields.
func (d Diagnostic) LogFields() map[string]any {
	return map[string]any{
		"error":         d.TopMessage,
		"error_code":    d.Code,
		"error_chain":   d.Chain,
		"pg_code":       d.PGCode,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_constraint": d.PGConstraint,
	}
}
