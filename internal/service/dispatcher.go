package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"zonectl/internal/logger"
	"zonectl/internal/metrics"
	"zonectl/internal/models"
	"zonectl/internal/protocol"
	"zonectl/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Execution sources recorded in the journal.
const (
	SourceAPI   = "api"
	SourceProbe = "probe"
	SourceCLI   = "cli"
)

const recordTimeout = 5 * time.Second

var ErrNoEngine = errors.New("dispatcher has no protocol engine")

// Engine is the blocking request/acknowledge cycle, satisfied by *protocol.Engine.
type Engine interface {
	Execute(name string) protocol.Result
	Send(zone, opcode uint8, name string) protocol.Result
}

type sourceKey struct{}

// WithSource tags ctx with the origin of the executions made under it.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the source stored by WithSource, or SourceAPI.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceAPI
}

// Dispatcher owns the engine: one request in flight at a time, optionally paced.
// Every result is journaled, recorded per zone, counted and fanned out to subscribers.
type Dispatcher struct {
	engine     Engine
	slot       chan struct{}
	limiter    *rate.Limiter
	executions repository.ExecutionRepo
	zones      repository.ZoneStatusRepo
	log        *logger.Logger
	now        func() time.Time

	mu     sync.Mutex
	subs   map[int]chan protocol.Result
	nextID int
}

type DispatcherOption func(*Dispatcher)

// WithLimiter paces requests; nil means unlimited.
func WithLimiter(l *rate.Limiter) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = l }
}

func WithDispatchLogger(l *logger.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = logger.OrNop(l) }
}

func withNow(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher builds a dispatcher. The repositories may be nil, in which case
// nothing is persisted.
func NewDispatcher(engine Engine, executions repository.ExecutionRepo, zones repository.ZoneStatusRepo, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		engine:     engine,
		slot:       make(chan struct{}, 1),
		executions: executions,
		zones:      zones,
		log:        logger.Nop(),
		now:        time.Now,
		subs:       make(map[int]chan protocol.Result),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs a named command from the table.
func (d *Dispatcher) Execute(ctx context.Context, name string) (protocol.Result, error) {
	return d.dispatch(ctx, false, func(e Engine) protocol.Result { return e.Execute(name) })
}

// Send transmits an explicit zone/opcode pair.
func (d *Dispatcher) Send(ctx context.Context, zone, opcode uint8, name string) (protocol.Result, error) {
	return d.dispatch(ctx, true, func(e Engine) protocol.Result { return e.Send(zone, opcode, name) })
}

// dispatch returns an error only when no request was made: missing engine or
// ctx done while waiting for the rate limiter or the link.
func (d *Dispatcher) dispatch(ctx context.Context, raw bool, call func(Engine) protocol.Result) (protocol.Result, error) {
	if d.engine == nil {
		return protocol.Result{}, ErrNoEngine
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return protocol.Result{}, err
		}
	}
	select {
	case d.slot <- struct{}{}:
	case <-ctx.Done():
		return protocol.Result{}, ctx.Err()
	}
	res := call(d.engine)
	<-d.slot

	d.record(ctx, res, raw)
	return res, nil
}

func (d *Dispatcher) record(ctx context.Context, res protocol.Result, raw bool) {
	if raw {
		metrics.RecordRawResult(res)
	} else {
		metrics.RecordResult(res)
	}

	if res.OK() {
		d.log.Debugw("command_ok", "command", res.Command, "zone", res.Zone, "opcode", res.Opcode, "elapsed_ms", res.ElapsedMs)
	} else {
		d.log.Warnw("command_failed", "command", res.Command, "zone", res.Zone, "opcode", res.Opcode,
			"status_code", res.StatusCode, "kind", res.Kind, "reason", res.Reason, "detail", res.Detail)
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	exec := toExecution(res, SourceFrom(ctx), d.now().UTC())
	if d.executions != nil {
		if err := d.executions.Append(rctx, exec); err != nil {
			d.log.Errorw("journal_append_failed", "command", res.Command, "err", err)
		}
	}
	if d.zones != nil && res.ResolvedZone() {
		if err := d.zones.Record(rctx, exec); err != nil {
			d.log.Errorw("zone_status_failed", "zone", res.Zone, "err", err)
		}
	}

	d.publish(res)
}

// Subscribe returns a channel receiving every subsequent result and a function
// that unsubscribes and closes it. A full channel drops results.
func (d *Dispatcher) Subscribe(buffer int) (<-chan protocol.Result, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan protocol.Result, buffer)

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs[id] = ch
	d.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
			close(ch)
		})
	}
}

func (d *Dispatcher) publish(res protocol.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.subs {
		select {
		case ch <- res:
		default:
			d.log.Debugw("subscriber_dropped_result", "subscriber", id, "command", res.Command)
		}
	}
}

func toExecution(res protocol.Result, source string, at time.Time) models.Execution {
	return models.Execution{
		ID:         uuid.NewString(),
		OccurredAt: at,
		Command:    res.Command,
		Zone:       res.Zone,
		Opcode:     res.Opcode,
		StatusCode: res.StatusCode,
		Outcome:    string(res.Outcome),
		Reason:     res.Reason,
		Kind:       string(res.Kind),
		ElapsedMs:  res.ElapsedMs,
		Source:     source,
	}
}
