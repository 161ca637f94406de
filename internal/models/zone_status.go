package models

import "time"

type ZoneStatus struct {
	Zone                uint8     `json:"zone"`
	LastCommand         string    `json:"last_command"`
	LastStatusCode      uint8     `json:"last_status_code"`
	LastOutcome         string    `json:"last_outcome"`
	LastReason          string    `json:"last_reason,omitempty"`
	LastElapsedMs       float64   `json:"last_elapsed_ms"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UpdatedAt           time.Time `json:"updated_at"`
}
