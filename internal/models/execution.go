package models

import "time"

// Execution is a single journal entry for a dispatched command.
type Execution struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Command    string    `json:"command"`
	Zone       uint8     `json:"zone"`
	Opcode     uint8     `json:"opcode"`
	StatusCode uint8     `json:"status_code"`
	Outcome    string    `json:"outcome"`          // OK | FAILED
	Reason     string    `json:"reason,omitempty"` // e.g. "no response"
	Kind       string    `json:"kind,omitempty"`   // e.g. "no_response"
	ElapsedMs  float64   `json:"elapsed_ms"`
	Source     string    `json:"source,omitempty"` // api | probe | cli
}
