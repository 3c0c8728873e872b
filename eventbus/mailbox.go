// Package eventbus implements the typed pub/sub event fabric: it delivers
// DataEvents, AlgoEvents, and SignalMessages from producers to subscribers
// while serializing each subscriber's handler invocations and propagating a
// cooperative shutdown.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kestrel-trading/kestrel/tracing"
)

// Handler processes one message for a subscriber. A handler error is logged
// and counted; it never tears the pipeline down.
type Handler func(ctx context.Context, msg any) error

// mailbox is a single subscriber's serial executor: a buffered channel plus
// one goroutine draining it in arrival order. No handler is ever invoked
// concurrently with itself.
type mailbox struct {
	name     string
	ch       chan any
	handler  Handler
	done     chan struct{}
	wg       sync.WaitGroup
	errCount atomic.Uint64
}

func newMailbox(name string, capacity int, handler Handler) *mailbox {
	return &mailbox{
		name:    name,
		ch:      make(chan any, capacity),
		handler: handler,
		done:    make(chan struct{}),
	}
}

func (m *mailbox) start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case msg := <-m.ch:
				if err := m.handler(context.Background(), msg); err != nil {
					m.errCount.Add(1)
					tracing.Logger(context.Background()).Error().
						Err(err).Str("subscriber", m.name).Msg("event fabric handler error")
				}
			case <-m.done:
				return
			}
		}
	}()
}

// send blocks the producer until the mailbox has capacity, unless shutdown
// fires first.
func (m *mailbox) send(msg any) {
	select {
	case m.ch <- msg:
	case <-m.done:
	}
}

func (m *mailbox) stop() {
	select {
	case <-m.done:
		// already closed
	default:
		close(m.done)
	}
	m.wg.Wait()
}

func (m *mailbox) errors() uint64 { return m.errCount.Load() }
