package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"zonectl/internal/models"

	"github.com/google/uuid"
)

type ExecutionSQLite struct {
	db *sql.DB
}

func NewExecutionSQLite(db *sql.DB) *ExecutionSQLite { return &ExecutionSQLite{db: db} }

// Ensure implementation of ExecutionRepo at compile time.
var _ ExecutionRepo = (*ExecutionSQLite)(nil)

const (
	insertExecutionSQL = `
		INSERT INTO command_executions (id, occurred_at, command, zone, opcode, status_code, outcome, reason, kind, elapsed_ms, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectExecutionsSQL = `SELECT id, occurred_at, command, zone, opcode, status_code, outcome, reason, kind, elapsed_ms, source FROM command_executions`

	sqliteTimestampLayout = "2006-01-02 15:04:05.000"
)

// Append inserts a journal entry. ID and OccurredAt are filled in when empty.
func (r *ExecutionSQLite) Append(ctx context.Context, e models.Execution) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertExecutionSQL,
		e.ID,
		e.OccurredAt.Format(sqliteTimestampLayout),
		e.Command,
		e.Zone,
		e.Opcode,
		e.StatusCode,
		strings.ToUpper(strings.TrimSpace(e.Outcome)),
		nullIfEmpty(e.Reason),
		nullIfEmpty(e.Kind),
		e.ElapsedMs,
		nullIfEmpty(e.Source),
	)
	return err
}

// List returns entries filtered by [from, to] (inclusive), command and outcome, ordered ASC.
func (r *ExecutionSQLite) List(ctx context.Context, from, to time.Time, command, outcome string) ([]models.Execution, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimestampLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimestampLayout))
	}
	if command = strings.TrimSpace(command); command != "" {
		conds = append(conds, "command = ?")
		args = append(args, command)
	}
	if outcome = strings.ToUpper(strings.TrimSpace(outcome)); outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, outcome)
	}

	q := selectExecutionsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Execution, 0, 64)
	for rows.Next() {
		var (
			ex                   models.Execution
			reason, kind, source sql.NullString
		)
		if err := rows.Scan(&ex.ID, &ex.OccurredAt, &ex.Command, &ex.Zone, &ex.Opcode, &ex.StatusCode,
			&ex.Outcome, &reason, &kind, &ex.ElapsedMs, &source); err != nil {
			return nil, err
		}
		ex.OccurredAt = ex.OccurredAt.UTC()
		ex.Reason, ex.Kind, ex.Source = reason.String, kind.String, source.String
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
