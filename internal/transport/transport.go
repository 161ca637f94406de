// Package transport provides the byte-stream link to the STM32 relay: a real
// UART and a fault-injecting simulation behind the same interface.
package transport

import "errors"

var (
	// ErrTimeout is returned by ReadByte when no byte arrived within the read timeout.
	ErrTimeout = errors.New("transport: read timeout")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport: closed")
	// ErrShortWrite is returned when fewer bytes than requested were written.
	ErrShortWrite = errors.New("transport: short write")
)

// Transport is the capability the protocol engine needs. The read timeout is
// fixed when the transport is constructed.
type Transport interface {
	// IsReady reports whether the channel is open and usable.
	IsReady() bool
	// Write blocks until all of p is written or fails.
	Write(p []byte) error
	// ReadByte blocks for at most the read timeout and returns ErrTimeout if
	// nothing arrived.
	ReadByte() (byte, error)
	Close() error
}
