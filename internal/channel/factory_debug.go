//go:build debug

package channel

// New creates a channel ignoring size, so that every delivery hands off
// synchronously and ordering bugs surface in debug builds.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
