package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_SendReceive(t *testing.T) {
	c := NewBuffered[int](2)
	ctx := context.Background()

	require.NoError(t, c.Send(ctx, 1))
	require.NoError(t, c.Send(ctx, 2))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 1, <-c.Receive())
	assert.Equal(t, 2, <-c.Receive())
	assert.Equal(t, 0, c.Len())
}

func TestBuffered_SendFullHonoursContext(t *testing.T) {
	c := NewBuffered[string](1)
	require.NoError(t, c.Send(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Send(ctx, "b"), context.DeadlineExceeded)
}

func TestUnbuffered_HandsOff(t *testing.T) {
	c := NewUnbuffered[int]()
	got := make(chan int)
	go func() { got <- <-c.Receive() }()

	require.NoError(t, c.Send(context.Background(), 7))
	assert.Equal(t, 7, <-got)
}

func TestClose_EndsRange(t *testing.T) {
	c := NewBuffered[int](3)
	ctx := context.Background()
	for i := range 3 {
		require.NoError(t, c.Send(ctx, i))
	}
	c.Close()

	var seen []int
	for v := range c.Receive() {
		seen = append(seen, v)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestNew_ImplementsChannel(t *testing.T) {
	var c Channel[int] = New[int](4)
	defer c.Close()

	go func() { _ = c.Send(context.Background(), 9) }()
	select {
	case v := <-c.Receive():
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("no value received")
	}
}
