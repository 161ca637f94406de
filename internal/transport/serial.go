package transport

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"zonectl/internal/logger"

	"go.bug.st/serial"
)

// Defaults match the relay firmware's UART setup.
const (
	DefaultPort        = "/dev/ttyS0"
	DefaultBaud        = 115200
	DefaultReadTimeout = time.Second
)

type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// port is the subset of serial.Port used here.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Serial is a UART link opened in 8N1 mode.
type Serial struct {
	port port
	cfg  SerialConfig
	open atomic.Bool
	log  *logger.Logger
}

// Ensure implementation of Transport at compile time.
var _ Transport = (*Serial)(nil)

// OpenSerial opens and configures the serial device.
func OpenSerial(cfg SerialConfig, log *logger.Logger) (*Serial, error) {
	cfg = cfg.withDefaults()
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", cfg.Port, err)
	}
	s, err := newSerial(p, cfg, log)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	s.log.Infow("serial_opened", "port", cfg.Port, "baud", cfg.Baud, "timeout", cfg.ReadTimeout)
	return s, nil
}

func newSerial(p port, cfg SerialConfig, log *logger.Logger) (*Serial, error) {
	cfg = cfg.withDefaults()
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("set read timeout on %q: %w", cfg.Port, err)
	}
	s := &Serial{port: p, cfg: cfg, log: logger.OrNop(log)}
	s.open.Store(true)
	return s, nil
}

func (s *Serial) IsReady() bool {
	return s != nil && s.open.Load()
}

// Write discards any unread input before sending, so a late acknowledgment
// from an earlier timed-out request is not read as the answer to this one.
func (s *Serial) Write(p []byte) error {
	if !s.IsReady() {
		return ErrClosed
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		s.log.Warnw("serial_flush_failed", "port", s.cfg.Port, "err", err)
	}
	n, err := s.port.Write(p)
	if err != nil {
		return fmt.Errorf("write %d bytes to %q: %w", len(p), s.cfg.Port, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(p))
	}
	return nil
}

func (s *Serial) ReadByte() (byte, error) {
	if !s.IsReady() {
		return 0, ErrClosed
	}
	var buf [1]byte
	n, err := s.port.Read(buf[:])
	if err != nil {
		return 0, fmt.Errorf("read from %q: %w", s.cfg.Port, err)
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return buf[0], nil
}

// Close is idempotent.
func (s *Serial) Close() error {
	if s == nil || !s.open.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial port %q: %w", s.cfg.Port, err)
	}
	s.log.Infow("serial_closed", "port", s.cfg.Port)
	return nil
}
