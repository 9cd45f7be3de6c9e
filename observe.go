package s7

import (
	"strings"
	"sync"
	"time"
)

// broadcaster is the hot, multicast publish/subscribe primitive behind
// every observe_* stream (§9 "Reactive streams -> explicit observers"): a
// subscriber only sees events published after it subscribes, and a slow
// subscriber drops events rather than stalling the publisher.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[int]chan T)}
}

// subscribe returns a receive-only channel of future events and a cancel
// func that unsubscribes and closes the channel. Safe to call from any
// goroutine.
func (b *broadcaster[T]) subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan T, 16)
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publish fans v out to every current subscriber. A subscriber whose buffer
// is full does not receive this event; it is the hot-stream contract, not a
// durable queue.
func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// ValueEvent is one change published by observe_all: a tag's name and its
// freshly decoded value.
type ValueEvent struct {
	Name  string
	Value any
}

// observers bundles the broadcasters backing every §6.4 observe_* stream
// for one Client.
type observers struct {
	all       *broadcaster[ValueEvent]
	connected *broadcaster[bool]
	readTime  *broadcaster[time.Duration]
	status    *broadcaster[string]
	lastError *broadcaster[*S7Error]
}

func newObservers() *observers {
	return &observers{
		all:       newBroadcaster[ValueEvent](),
		connected: newBroadcaster[bool](),
		readTime:  newBroadcaster[time.Duration](),
		status:    newBroadcaster[string](),
		lastError: newBroadcaster[*S7Error](),
	}
}

// ObserveAll returns a hot stream of every tag's value changes, in the
// order the polling engine (or a synchronous ReadValue) observes them.
func (c *Client) ObserveAll() (<-chan ValueEvent, func()) {
	return c.observers.all.subscribe()
}

// ObserveValue returns a hot stream of one named tag's value changes. It is
// a filtered projection of ObserveAll (§9): internally it subscribes to
// ObserveAll and forwards only matching events, exiting when cancelled.
func (c *Client) ObserveValue(name string) (<-chan any, func()) {
	upstream, cancelUpstream := c.observers.all.subscribe()
	out := make(chan any, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-upstream:
				if !ok {
					return
				}
				if strings.EqualFold(ev.Name, name) {
					select {
					case out <- ev.Value:
					default:
					}
				}
			case <-done:
				return
			}
		}
	}()
	cancel := func() {
		cancelUpstream()
		close(done)
	}
	return out, cancel
}

// ObserveConnected returns a hot stream of true/false connectivity
// transitions (phase == Ready vs. not).
func (c *Client) ObserveConnected() (<-chan bool, func()) {
	return c.observers.connected.subscribe()
}

// ObserveReadTime returns a hot stream of per-scan poll durations (§4.8
// step 7).
func (c *Client) ObserveReadTime() (<-chan time.Duration, func()) {
	return c.observers.readTime.subscribe()
}

// ObserveStatus returns a hot stream of human-readable status messages
// (§4.10's message stream).
func (c *Client) ObserveStatus() (<-chan string, func()) {
	return c.observers.status.subscribe()
}

// ObserveLastError returns a hot stream of typed errors (§4.10's code
// stream); every error is published here exactly once, the same event a
// synchronous caller sees as its returned error.
func (c *Client) ObserveLastError() (<-chan *S7Error, func()) {
	return c.observers.lastError.subscribe()
}

// publishError fans an error out to both the status stream (human-readable)
// and the typed error stream, per §4.10/§7 "every error emits once on both
// the message stream and the code stream".
func (c *Client) publishError(e *S7Error) {
	c.observers.lastError.publish(e)
	c.observers.status.publish(e.Error())
	c.metrics.RecordError()
}

func (c *Client) publishStatus(msg string) {
	c.observers.status.publish(msg)
}

func (c *Client) publishConnected(v bool) {
	c.observers.connected.publish(v)
}

func (c *Client) publishValue(name string, v any) {
	c.observers.all.publish(ValueEvent{Name: name, Value: v})
}

func (c *Client) publishReadTime(d time.Duration) {
	c.observers.readTime.publish(d)
}
