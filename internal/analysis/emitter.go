package analysis

import (
	"context"
	"time"

	"github.com/firereach/ladderreach/internal/channel"
	"github.com/firereach/ladderreach/internal/queue"
	"github.com/firereach/ladderreach/pkg/core"
)

// flushTimeout bounds how long close waits for a consumer to take the
// events still queued.
const flushTimeout = 5 * time.Second

// emitter delivers events to a single consumer in emission order. emit never
// blocks; a pump goroutine moves queued events onto the outgoing channel.
type emitter struct {
	pending *queue.Queue[core.Event]
	out     channel.Channel[core.Event]

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}
}

func newEmitter(buffer int) *emitter {
	ctx, cancel := context.WithCancel(context.Background())
	e := &emitter{
		pending: queue.New[core.Event](),
		out:     channel.New[core.Event](buffer),
		ctx:     ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go e.pump()
	return e
}

func (e *emitter) emit(ev core.Event) {
	e.pending.Push(ev)
}

func (e *emitter) pump() {
	defer close(e.done)
	for {
		select {
		case <-e.pending.Ready():
			if !e.deliver() {
				return
			}
		case <-e.stop:
			e.deliver()
			return
		}
	}
}

// deliver sends everything queued so far and reports whether the consumer
// can still be reached.
func (e *emitter) deliver() bool {
	for _, ev := range e.pending.Drain() {
		if err := e.out.Send(e.ctx, ev); err != nil {
			return false
		}
	}
	return true
}

func (e *emitter) events() <-chan core.Event {
	return e.out.Receive()
}

// close delivers the queued events, then closes the outgoing channel. Events
// a consumer has not taken within flushTimeout are dropped. Nothing may be
// emitted once close has been called.
func (e *emitter) close() {
	close(e.stop)
	t := time.AfterFunc(flushTimeout, e.cancel)
	<-e.done
	t.Stop()
	e.cancel()
	e.out.Close()
}
