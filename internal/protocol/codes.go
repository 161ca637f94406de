package protocol

import (
	"errors"
	"fmt"
)

// Response codes sent back by the relay, plus ERR_CMD which never travels on
// the wire and marks a name missing from the command table.
const (
	CodeConfirm byte = 0x00 // CONFIRM
	CodeErrTx   byte = 0x01 // relay could not transmit to the sub-controller
	CodeErrAck  byte = 0x02 // sub-controller did not acknowledge
	CodeErrAddr byte = 0x03 // zone outside 1..9 on the relay side
	CodeErrSTM  byte = 0x04 // relay internal error; also used when no device byte was obtained
	CodeErrCmd  byte = 0x05 // command not found (host side only)
)

// Kind classifies why an execution failed.
type Kind string

const (
	KindNone                 Kind = ""
	KindCommandNotFound      Kind = "command_not_found"
	KindTransportUnavailable Kind = "transport_unavailable"
	KindTransmissionFailure  Kind = "transmission_failure"
	KindNoResponse           Kind = "no_response"
	KindDeviceError          Kind = "device_error"
	KindUnknownResponseCode  Kind = "unknown_response_code"
)

// Failure reasons as reported in Result.Reason.
const (
	ReasonCommandNotFound      = "command not found"
	ReasonTransportUnavailable = "transport unavailable"
	ReasonTransmissionError    = "transmission error"
	ReasonNoResponse           = "no response"
	ReasonTxError              = "tx error"
	ReasonAckError             = "ack error"
	ReasonInvalidAddress       = "invalid address"
	ReasonDeviceInternal       = "device internal error"
)

// Sentinel errors, one per failure kind, reachable through Result.Err.
var (
	ErrCommandNotFound      = errors.New("command not found")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrTransmission         = errors.New("transmission failure")
	ErrNoResponse           = errors.New("no response from device")
	ErrDevice               = errors.New("device reported an error")
	ErrUnknownResponse      = errors.New("unknown response code")
)

var kindErrors = map[Kind]error{
	KindCommandNotFound:      ErrCommandNotFound,
	KindTransportUnavailable: ErrTransportUnavailable,
	KindTransmissionFailure:  ErrTransmission,
	KindNoResponse:           ErrNoResponse,
	KindDeviceError:          ErrDevice,
	KindUnknownResponseCode:  ErrUnknownResponse,
}

var deviceReasons = map[byte]string{
	CodeErrTx:   ReasonTxError,
	CodeErrAck:  ReasonAckError,
	CodeErrAddr: ReasonInvalidAddress,
	CodeErrSTM:  ReasonDeviceInternal,
}

// Classify maps a response byte to its outcome. The table is fixed.
func Classify(code byte) (Outcome, Kind, string) {
	if code == CodeConfirm {
		return OutcomeOK, KindNone, ""
	}
	if reason, ok := deviceReasons[code]; ok {
		return OutcomeFailed, KindDeviceError, reason
	}
	return OutcomeFailed, KindUnknownResponseCode, fmt.Sprintf("unknown code 0x%02x", code)
}

// CodeName returns the symbolic name of a response code, or "" if unknown.
func CodeName(code byte) string {
	switch code {
	case CodeConfirm:
		return "CONFIRM"
	case CodeErrTx:
		return "ERR_TX"
	case CodeErrAck:
		return "ERR_ACK"
	case CodeErrAddr:
		return "ERR_ADDR"
	case CodeErrSTM:
		return "ERR_STM"
	case CodeErrCmd:
		return "ERR_CMD"
	}
	return ""
}
