package protocol

import "fmt"

// Outcome is the overall verdict of one execution.
type Outcome string

const (
	OutcomeOK     Outcome = "OK"
	OutcomeFailed Outcome = "FAILED"
)

// Result is returned by value for every Execute and Send call.
// StatusCode is the literal device byte when one was read, otherwise ERR_STM
// or ERR_CMD.
type Result struct {
	Command    string  `json:"command"`
	Zone       uint8   `json:"zone"`
	Opcode     uint8   `json:"opcode"`
	StatusCode byte    `json:"status_code"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	Kind       Kind    `json:"kind,omitempty"`
	Detail     string  `json:"detail,omitempty"` // underlying transport error text
	ElapsedMs  float64 `json:"elapsed_ms"`
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Err returns nil for a successful execution, otherwise an error wrapping the
// sentinel for the failure kind.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	sentinel, ok := kindErrors[r.Kind]
	if !ok {
		sentinel = ErrDevice
	}
	switch {
	case r.Kind == KindDeviceError || r.Kind == KindUnknownResponseCode:
		return fmt.Errorf("%s: %w: %s (0x%02x)", r.Command, sentinel, r.Reason, r.StatusCode)
	case r.Detail != "":
		return fmt.Errorf("%s: %w: %s", r.Command, sentinel, r.Detail)
	default:
		return fmt.Errorf("%s: %w", r.Command, sentinel)
	}
}

// ResolvedZone reports whether the execution got as far as addressing a zone.
func (r Result) ResolvedZone() bool {
	return r.Kind != KindCommandNotFound
}

// Status renders the outcome as "OK" or "Failed | <reason>".
func (r Result) Status() string {
	if r.OK() {
		return "OK"
	}
	return "Failed | " + r.Reason
}
