package service

import (
	"context"
	"time"

	"zonectl/internal/logger"
)

// ProberService executes a configured command on every tick so that zone status
// and metrics stay fresh while no operator is sending commands.
type ProberService struct {
	dispatch Dispatch
	command  string
	log      *logger.Logger
}

func NewProberService(dispatch Dispatch, command string, log *logger.Logger) *ProberService {
	return &ProberService{dispatch: dispatch, command: command, log: logger.OrNop(log)}
}

// Run ticks at the given interval until ctx is canceled.
// It returns immediately when no probe command is configured.
func (s *ProberService) Run(ctx context.Context, interval time.Duration) {
	if s.command == "" || interval <= 0 {
		s.log.Infow("probe_disabled", "command", s.command, "interval", interval)
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !s.probeOnce(ctx) {
				return
			}
		}
	}
}

// probeOnce reports false when ctx ended while the probe was waiting.
func (s *ProberService) probeOnce(ctx context.Context) bool {
	res, err := s.dispatch.Execute(WithSource(ctx, SourceProbe), s.command)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.log.Errorw("probe_error", "command", s.command, "err", err)
		return true
	}
	if !res.OK() {
		s.log.Warnw("probe_failed", "command", s.command, "zone", res.Zone, "reason", res.Reason)
	}
	return true
}
