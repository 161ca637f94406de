package service

import "time"

// ExecutionFilter supports journal filtering by time range, command name and outcome.
type ExecutionFilter struct {
	From    time.Time // inclusive; zero means no lower bound
	To      time.Time // inclusive; zero means no upper bound
	Command string    // exact command name, "" for all
	Outcome string    // "", "OK", "FAILED"
}
