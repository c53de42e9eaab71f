package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the structured-log view of an error: the top message, the
// coded classification, the flattened unwrap chain, and any Postgres driver
// detail found inside it. Snapshot and outbox writes surface gorm errors
// that wrap either pgx or lib/pq depending on the connection path, so both
// drivers are probed.
type ErrorDump struct {
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

// Dump flattens err for logging. A nil error yields a zero dump.
func Dump(err error) ErrorDump {
	var dump ErrorDump
	if err == nil {
		return dump
	}

	dump.TopMessage = err.Error()
	if coded := As(err); coded != nil {
		dump.Code = coded.Code()
	}
	for cause := err; cause != nil; cause = errors.Unwrap(cause) {
		dump.Chain = append(dump.Chain, fmt.Sprintf("%T: %v", cause, cause))
	}
	dump.attachPostgres(err)
	return dump
}

func (d *ErrorDump) attachPostgres(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
}
