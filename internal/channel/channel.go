// Package channel provides generic channel interfaces for decoupled communication.
package channel

import "context"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Chan is a Channel backed by a plain Go channel.
type Chan[T any] struct {
	ch chan T
}

// NewBuffered creates a channel holding up to size values.
func NewBuffered[T any](size int) *Chan[T] {
	return &Chan[T]{ch: make(chan T, size)}
}

// NewUnbuffered creates a channel where every Send waits for a receiver.
func NewUnbuffered[T any]() *Chan[T] {
	return &Chan[T]{ch: make(chan T)}
}

// Send delivers v, giving up when ctx is done.
func (c *Chan[T]) Send(ctx context.Context, v T) error {
	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the receive-only channel.
func (c *Chan[T]) Receive() <-chan T {
	return c.ch
}

// Len returns the number of buffered values.
func (c *Chan[T]) Len() int {
	return len(c.ch)
}

// Close closes the channel. Send must not be called afterwards.
func (c *Chan[T]) Close() {
	close(c.ch)
}
