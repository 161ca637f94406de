package repository_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"zonectl/internal/models"
	"zonectl/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}

func TestZoneStatus_Record_UpsertsWithFailureCounter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewZoneStatusSQLite(db)

	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))
	isUTC := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		return ok && tm.Location() == time.UTC && tm.Equal(at)
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO zone_status")).
		WithArgs(3, "CLOSE_VALVE", 1, "FAILED", "tx error", 104.0, 1, isUTC).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Record(context.Background(), models.Execution{
		OccurredAt: at,
		Command:    "CLOSE_VALVE",
		Zone:       3,
		Opcode:     6,
		StatusCode: 1,
		Outcome:    "FAILED",
		Reason:     "tx error",
		ElapsedMs:  104,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestZoneStatus_Record_OKStartsWithZeroFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewZoneStatusSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT(zone) DO UPDATE")).
		WithArgs(1, "CHECK_STATUS", 0, "OK", nil, 50.0, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Record(context.Background(), models.Execution{
		Command: "CHECK_STATUS", Zone: 1, Outcome: "OK", ElapsedMs: 50,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestZoneStatus_Record_ErrorIsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewZoneStatusSQLite(db)
	mock.ExpectExec("INSERT INTO zone_status").WillReturnError(errors.New("locked"))

	err = repo.Record(context.Background(), models.Execution{Zone: 7, Outcome: "OK"})
	if err == nil || !strings.Contains(err.Error(), "zone 7") || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestZoneStatus_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewZoneStatusSQLite(db)

	ny, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2024, 2, 1, 8, 30, 0, 0, ny)
	cols := []string{"zone", "last_command", "last_status_code", "last_outcome", "last_reason", "last_elapsed_ms", "failures", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM zone_status ORDER BY zone ASC")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "CHECK_STATUS", 0, "OK", nil, 101.0, 0, nonUTC).
			AddRow(3, "OPEN_VALVE", 4, "FAILED", "no response", 1100.0, 2, nonUTC))

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 zones, got %d", len(got))
	}
	if got[0].Zone != 1 || got[0].LastReason != "" || got[0].UpdatedAt.Location() != time.UTC {
		t.Fatalf("unexpected zone 1: %+v", got[0])
	}
	if got[1].ConsecutiveFailures != 2 || got[1].LastReason != "no response" || got[1].LastStatusCode != 4 {
		t.Fatalf("unexpected zone 3: %+v", got[1])
	}
}

func TestZoneStatus_List_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT zone").WillReturnError(errors.New("boom"))
	if _, err := repository.NewZoneStatusSQLite(db).List(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
