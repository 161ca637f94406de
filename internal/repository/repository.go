package repository

import (
	"context"
	"database/sql"
	"time"

	"zonectl/internal/models"
	"zonectl/internal/repository/db"
)

type Operators interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

// ExecutionRepo is the append-only command journal.
type ExecutionRepo interface {
	Append(ctx context.Context, e models.Execution) error
	List(ctx context.Context, from, to time.Time, command, outcome string) ([]models.Execution, error)
}

// ZoneStatusRepo keeps the latest outcome per zone.
type ZoneStatusRepo interface {
	Record(ctx context.Context, e models.Execution) error
	List(ctx context.Context) ([]models.ZoneStatus, error)
}

type Repository struct {
	Executions ExecutionRepo
	Zones      ZoneStatusRepo
	Operators  Operators
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{
		Executions: NewExecutionSQLite(conn),
		Zones:      NewZoneStatusSQLite(conn),
		Operators:  NewOperatorRepository(conn),
	}
}

// InitDB opens the SQLite database at path with the gateway schema.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
