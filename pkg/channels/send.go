// Package channels provides small helpers for channel fan-out where slow
// consumers must never stall the producer.
package channels

import (
	"errors"
	"time"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)

// SendNonBlock attempts to send a message without blocking.
// Returns an error if the channel is full or closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// SendWithTimeout sends a message, giving up after the timeout expires.
func SendWithTimeout[T any](ch chan<- T, msg T, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	case <-time.After(timeout):
		return ErrChannelTimeout
	}
}
