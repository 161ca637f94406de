package transport

import (
	"math/rand/v2"
	"sync"
	"time"

	"zonectl/internal/logger"
)

// Relay response codes produced by the simulation.
const (
	codeConfirm = 0x00
	codeErrTx   = 0x01
	codeErrAck  = 0x02
	codeErrAddr = 0x03
	codeErrSTM  = 0x04
)

// Simulation defaults.
const (
	DefaultErrorProbability = 0.25
	DefaultLatency          = 50 * time.Millisecond

	relayMinZone = 1
	relayMaxZone = 9
	frameLen     = 2
)

var simulatedFaults = []byte{codeErrTx, codeErrAck, codeErrAddr, codeErrSTM}

// SimConfig tunes the simulated relay. Zero probabilities disable the fault.
type SimConfig struct {
	ErrorProbability float64       // chance of answering with a random error code
	DropProbability  float64       // chance of never answering (read timeout)
	Latency          time.Duration // device processing time before the ack byte
	ReadTimeout      time.Duration
	Rand             *rand.Rand // nil uses a time-seeded source
}

// Simulated behaves like the STM32 relay on the other end of the UART: it
// consumes two-byte frames, rejects zones outside 1..9 with ERR_ADDR and
// otherwise confirms, unless a fault is injected.
type Simulated struct {
	mu      sync.Mutex
	cfg     SimConfig
	rnd     *rand.Rand
	open    bool
	partial []byte
	pending []byte
	log     *logger.Logger
	sleep   func(time.Duration)
}

// Ensure implementation of Transport at compile time.
var _ Transport = (*Simulated)(nil)

// NewSimulated returns an open simulated transport.
func NewSimulated(cfg SimConfig, log *logger.Logger) *Simulated {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}
	rnd := cfg.Rand
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	s := &Simulated{
		cfg:   cfg,
		rnd:   rnd,
		open:  true,
		log:   logger.OrNop(log),
		sleep: time.Sleep,
	}
	s.log.Infow("simulated_transport_ready",
		"error_probability", cfg.ErrorProbability,
		"drop_probability", cfg.DropProbability,
		"latency", cfg.Latency,
	)
	return s
}

func (s *Simulated) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Write accepts bytes in any chunking; every complete frame gets one response
// queued (or none when the drop fault fires).
func (s *Simulated) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrClosed
	}
	s.partial = append(s.partial, p...)
	for len(s.partial) >= frameLen {
		zone, opcode := s.partial[0], s.partial[1]
		s.partial = s.partial[frameLen:]
		if code, ok := s.respond(zone, opcode); ok {
			s.pending = append(s.pending, code)
		}
	}
	return nil
}

// respond decides the relay's answer for one frame. Caller holds mu.
func (s *Simulated) respond(zone, opcode byte) (byte, bool) {
	if s.cfg.DropProbability > 0 && s.rnd.Float64() < s.cfg.DropProbability {
		s.log.Debugw("simulated_drop", "zone", zone, "opcode", opcode)
		return 0, false
	}
	if zone < relayMinZone || zone > relayMaxZone {
		return codeErrAddr, true
	}
	if s.cfg.ErrorProbability > 0 && s.rnd.Float64() < s.cfg.ErrorProbability {
		code := simulatedFaults[s.rnd.IntN(len(simulatedFaults))]
		s.log.Debugw("simulated_fault", "zone", zone, "opcode", opcode, "code", code)
		return code, true
	}
	return codeConfirm, true
}

// ReadByte waits the simulated latency and returns the oldest queued response.
// With nothing queued, or a latency beyond the timeout, it waits out the
// timeout and returns ErrTimeout.
func (s *Simulated) ReadByte() (byte, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if len(s.pending) == 0 || s.cfg.Latency >= s.cfg.ReadTimeout {
		s.pending = s.pending[:0]
		s.mu.Unlock()
		s.sleep(s.cfg.ReadTimeout)
		return 0, ErrTimeout
	}
	code := s.pending[0]
	s.pending = s.pending[1:]
	latency := s.cfg.Latency
	s.mu.Unlock()

	s.sleep(latency)
	return code, nil
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.open = false
		s.partial, s.pending = nil, nil
		s.log.Infow("simulated_transport_closed")
	}
	return nil
}
