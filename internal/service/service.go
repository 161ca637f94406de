package service

import (
	"context"
	"time"

	"zonectl/internal/commands"
	"zonectl/internal/logger"
	"zonectl/internal/models"
	"zonectl/internal/protocol"
	"zonectl/internal/repository"

	"golang.org/x/time/rate"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Dispatch serializes command executions against the single relay link.
type Dispatch interface {
	Execute(ctx context.Context, name string) (protocol.Result, error)
	Send(ctx context.Context, zone, opcode uint8, name string) (protocol.Result, error)
	Subscribe(buffer int) (<-chan protocol.Result, func())
}

// Catalog exposes the loaded command table.
type Catalog interface {
	Commands() []models.CommandDef
	Anomalies() []commands.Anomaly
}

// Zones exposes the last known outcome per zone.
type Zones interface {
	List(ctx context.Context) ([]models.ZoneStatus, error)
}

// ExecutionLog exposes the append-only command journal with filtering access.
type ExecutionLog interface {
	List(ctx context.Context, f ExecutionFilter) ([]models.Execution, error)
}

// Prober periodically executes a health command.
// Stop via context cancellation for graceful shutdown.
type Prober interface {
	Run(ctx context.Context, interval time.Duration)
}

type Service struct {
	Dispatch
	Catalog
	Zones
	ExecutionLog
	Prober
	Authorization
}

// Deps carries everything NewService wires together.
type Deps struct {
	Repos     *repository.Repository
	Engine    Engine
	Table     *commands.Table
	Anomalies []commands.Anomaly

	Rate  float64 // commands per second, 0 = unlimited
	Burst int

	ProbeCommand string
	SigningKey   string
	TokenTTL     time.Duration

	Log *logger.Logger
}

func NewService(d Deps) *Service {
	log := logger.OrNop(d.Log)

	opts := []DispatcherOption{WithDispatchLogger(log.Named("dispatcher"))}
	if d.Rate > 0 {
		opts = append(opts, WithLimiter(rate.NewLimiter(rate.Limit(d.Rate), max(d.Burst, 1))))
	}
	dispatcher := NewDispatcher(d.Engine, d.Repos.Executions, d.Repos.Zones, opts...)

	return &Service{
		Dispatch:      dispatcher,
		Catalog:       NewCatalogService(d.Table, d.Anomalies),
		Zones:         NewZoneService(d.Repos.Zones),
		ExecutionLog:  NewExecutionLogService(d.Repos.Executions),
		Prober:        NewProberService(dispatcher, d.ProbeCommand, log.Named("prober")),
		Authorization: NewAuthService(d.Repos.Operators, d.SigningKey, d.TokenTTL),
	}
}
