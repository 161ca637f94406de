package service

import (
	"context"
	"errors"
	"strings"

	"zonectl/internal/models"
	"zonectl/internal/protocol"
	"zonectl/internal/repository"
)

type ExecutionLogService struct {
	executionRepo repository.ExecutionRepo
}

func NewExecutionLogService(executionRepo repository.ExecutionRepo) *ExecutionLogService {
	return &ExecutionLogService{executionRepo: executionRepo}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrInvalidOutcome   = errors.New("invalid outcome: must be OK or FAILED")
)

// normalizeOutcome trims spaces and uppercases the outcome filter.
func normalizeOutcome(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates them.
// Command names are matched exactly, as the table does.
func normalizeAndValidateFilter(f ExecutionFilter) (ExecutionFilter, error) {
	out := ExecutionFilter{
		From:    toUTC(f.From),
		To:      toUTC(f.To),
		Command: strings.TrimSpace(f.Command),
		Outcome: normalizeOutcome(f.Outcome),
	}

	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return ExecutionFilter{}, ErrInvalidTimeRange
	}
	switch protocol.Outcome(out.Outcome) {
	case "", protocol.OutcomeOK, protocol.OutcomeFailed:
	default:
		return ExecutionFilter{}, ErrInvalidOutcome
	}
	return out, nil
}

func (s *ExecutionLogService) List(ctx context.Context, f ExecutionFilter) ([]models.Execution, error) {
	nf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.executionRepo.List(ctx, nf.From, nf.To, nf.Command, nf.Outcome)
}
