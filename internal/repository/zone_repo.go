package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zonectl/internal/models"
)

type ZoneStatusSQLite struct {
	db *sql.DB
}

func NewZoneStatusSQLite(db *sql.DB) *ZoneStatusSQLite {
	return &ZoneStatusSQLite{db: db}
}

// Ensure implementation of ZoneStatusRepo at compile time.
var _ ZoneStatusRepo = (*ZoneStatusSQLite)(nil)

const (
	outcomeOK = "OK"

	// failures counts consecutive non-OK outcomes and resets on OK.
	upsertZoneStatusSQL = `
		INSERT INTO zone_status (zone, last_command, last_status_code, last_outcome, last_reason, last_elapsed_ms, failures, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(zone) DO UPDATE SET
			last_command=excluded.last_command,
			last_status_code=excluded.last_status_code,
			last_outcome=excluded.last_outcome,
			last_reason=excluded.last_reason,
			last_elapsed_ms=excluded.last_elapsed_ms,
			failures=CASE WHEN excluded.last_outcome = 'OK' THEN 0 ELSE zone_status.failures + 1 END,
			updated_at=excluded.updated_at
	`

	selectZoneStatusSQL = `
		SELECT zone, last_command, last_status_code, last_outcome, last_reason, last_elapsed_ms, failures, updated_at
		FROM zone_status ORDER BY zone ASC
	`
)

// Record folds one execution into its zone's row.
func (r *ZoneStatusSQLite) Record(ctx context.Context, e models.Execution) error {
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	initialFailures := 1
	if e.Outcome == outcomeOK {
		initialFailures = 0
	}

	_, err := r.db.ExecContext(ctx, upsertZoneStatusSQL,
		e.Zone,
		e.Command,
		e.StatusCode,
		e.Outcome,
		nullIfEmpty(e.Reason),
		e.ElapsedMs,
		initialFailures,
		ts,
	)
	if err != nil {
		return fmt.Errorf("upsert zone %d status: %w", e.Zone, err)
	}
	return nil
}

// List returns every known zone ordered by zone number.
func (r *ZoneStatusSQLite) List(ctx context.Context) ([]models.ZoneStatus, error) {
	rows, err := r.db.QueryContext(ctx, selectZoneStatusSQL)
	if err != nil {
		return nil, fmt.Errorf("select zone status: %w", err)
	}
	defer rows.Close()

	var out []models.ZoneStatus
	for rows.Next() {
		var (
			z      models.ZoneStatus
			reason sql.NullString
		)
		if err := rows.Scan(&z.Zone, &z.LastCommand, &z.LastStatusCode, &z.LastOutcome, &reason,
			&z.LastElapsedMs, &z.ConsecutiveFailures, &z.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan zone status: %w", err)
		}
		z.LastReason = reason.String
		z.UpdatedAt = z.UpdatedAt.UTC()
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone status: %w", err)
	}
	return out, nil
}
