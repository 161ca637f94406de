// Package protocol implements the request/acknowledge exchange with the STM32
// relay: a two-byte [zone, opcode] frame answered by a single status byte.
//
// The Engine is synchronous and does no locking. One Engine owns one
// transport; concurrent callers must serialize access to it.
package protocol

import (
	"errors"
	"time"

	"zonectl/internal/logger"
	"zonectl/internal/models"
	"zonectl/internal/transport"
)

// DefaultSettleDelay is the pause between sending a frame and listening for the
// acknowledgment, covering the relay's I2C round trip to the sub-controller.
const DefaultSettleDelay = 100 * time.Millisecond

// Lookup resolves command names. *commands.Table satisfies it.
type Lookup interface {
	Find(name string) (models.CommandDef, bool)
}

// Engine turns command names into frames and acknowledgments into Results.
type Engine struct {
	table     Lookup
	transport transport.Transport
	settle    time.Duration
	log       *logger.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

type Option func(*Engine)

// WithSettleDelay overrides DefaultSettleDelay. Negative values are treated as zero.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d < 0 {
			d = 0
		}
		e.settle = d
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l).Named("protocol") }
}

// WithClock replaces the wall clock and sleep used for timing.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// New builds an engine. A nil transport is allowed: every Send then reports
// the transport as unavailable.
func New(table Lookup, tr transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		table:     table,
		transport: tr,
		settle:    DefaultSettleDelay,
		log:       logger.Nop(),
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SettleDelay returns the configured settle delay.
func (e *Engine) SettleDelay() time.Duration { return e.settle }

// Execute looks name up in the command table and sends it. An unknown name
// produces a failed Result without touching the transport.
func (e *Engine) Execute(name string) Result {
	var (
		def models.CommandDef
		ok  bool
	)
	if e.table != nil {
		def, ok = e.table.Find(name)
	}
	if !ok {
		e.log.Warnw("command_not_found", "command", name)
		return Result{
			Command:    name,
			StatusCode: CodeErrCmd,
			Outcome:    OutcomeFailed,
			Reason:     ReasonCommandNotFound,
			Kind:       KindCommandNotFound,
		}
	}
	return e.Send(def.Zone, def.Opcode, name)
}

// Send performs one exchange: check the transport, write [zone, opcode],
// wait the settle delay, read one byte, classify it. It never panics on a
// failed exchange and never returns an error; failures are in the Result.
func (e *Engine) Send(zone, opcode uint8, name string) Result {
	res := Result{Command: name, Zone: zone, Opcode: opcode}

	if !e.transportReady() {
		e.log.Warnw("transport_unavailable", "command", name, "zone", zone, "opcode", opcode)
		return fail(res, CodeErrSTM, KindTransportUnavailable, ReasonTransportUnavailable, "")
	}

	start := e.now()
	frame := EncodeFrame(zone, opcode)
	if err := e.transport.Write(frame[:]); err != nil {
		e.log.Errorw("command_write_failed", "command", name, "zone", zone, "opcode", opcode, "err", err)
		return fail(res, CodeErrSTM, KindTransmissionFailure, ReasonTransmissionError, err.Error())
	}
	e.log.Debugw("command_sent", "command", name, "zone", zone, "opcode", opcode)

	if e.settle > 0 {
		e.sleep(e.settle)
	}

	code, err := e.transport.ReadByte()
	res.ElapsedMs = elapsedMs(e.now().Sub(start))
	if err != nil {
		detail := ""
		if !errors.Is(err, transport.ErrTimeout) {
			detail = err.Error()
		}
		e.log.Warnw("command_no_response", "command", name, "zone", zone, "elapsed_ms", res.ElapsedMs, "err", err)
		return fail(res, CodeErrSTM, KindNoResponse, ReasonNoResponse, detail)
	}

	res.StatusCode = code
	res.Outcome, res.Kind, res.Reason = Classify(code)
	if res.OK() {
		e.log.Infow("command_confirmed", "command", name, "zone", zone, "opcode", opcode, "elapsed_ms", res.ElapsedMs)
	} else {
		e.log.Warnw("command_failed", "command", name, "zone", zone, "opcode", opcode,
			"code", code, "reason", res.Reason, "elapsed_ms", res.ElapsedMs)
	}
	return res
}

// transportReady treats an absent transport like a closed one.
func (e *Engine) transportReady() bool {
	return e.transport != nil && e.transport.IsReady()
}

// fail fills a failure branch. ElapsedMs is left as the caller set it.
func fail(res Result, code byte, kind Kind, reason, detail string) Result {
	res.StatusCode = code
	res.Outcome = OutcomeFailed
	res.Kind = kind
	res.Reason = reason
	res.Detail = detail
	return res
}

// elapsedMs converts d to milliseconds with microsecond precision.
func elapsedMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
