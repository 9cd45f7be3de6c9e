// Package metrics tracks running byte/operation/error counters and bounded
// rolling windows of per-exchange latency for one S7 core instance.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

const windowSize = 100

// window is a fixed-capacity ring buffer of durations.
type window struct {
	mu     sync.Mutex
	buf    [windowSize]time.Duration
	filled int
	next   int
}

func (w *window) push(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf[w.next] = d
	w.next = (w.next + 1) % windowSize
	if w.filled < windowSize {
		w.filled++
	}
}

func (w *window) average() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filled == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < w.filled; i++ {
		total += w.buf[i]
	}
	return total / time.Duration(w.filled)
}

func (w *window) snapshot() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]time.Duration, w.filled)
	if w.filled < windowSize {
		copy(out, w.buf[:w.filled])
		return out
	}
	// Oldest element is at w.next once the ring has wrapped.
	copy(out, w.buf[w.next:])
	copy(out[windowSize-w.next:], w.buf[:w.next])
	return out
}

// Recorder holds the atomic counters and rolling windows for one core
// instance. The zero value is ready to use.
type Recorder struct {
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
	operationCount atomic.Int64
	errorCount    atomic.Int64

	sendWindow    window
	receiveWindow window
}

// AddSent records bytes written to the socket.
func (r *Recorder) AddSent(n int) { r.bytesSent.Add(int64(n)) }

// AddReceived records bytes read from the socket.
func (r *Recorder) AddReceived(n int) { r.bytesReceived.Add(int64(n)) }

// RecordSend records one send-side exchange latency and counts it as an
// operation.
func (r *Recorder) RecordSend(d time.Duration) {
	r.operationCount.Add(1)
	r.sendWindow.push(d)
}

// RecordReceive records one receive-side exchange latency.
func (r *Recorder) RecordReceive(d time.Duration) {
	r.receiveWindow.push(d)
}

// RecordError increments the error counter.
func (r *Recorder) RecordError() { r.errorCount.Add(1) }

// Snapshot is an immutable copy of the recorder's state, safe to publish to
// observers without holding any lock.
type Snapshot struct {
	BytesSent      int64
	BytesReceived  int64
	OperationCount int64
	ErrorCount     int64
	AverageSend    time.Duration
	AverageReceive time.Duration
	ErrorRate      float64
	RecentSends    []time.Duration
	RecentReceives []time.Duration
}

// Snapshot takes an immutable copy of the current counters and windows.
func (r *Recorder) Snapshot() Snapshot {
	ops := r.operationCount.Load()
	errs := r.errorCount.Load()
	var errRate float64
	if ops > 0 {
		errRate = float64(errs) / float64(ops)
	}
	return Snapshot{
		BytesSent:      r.bytesSent.Load(),
		BytesReceived:  r.bytesReceived.Load(),
		OperationCount: ops,
		ErrorCount:     errs,
		AverageSend:    r.sendWindow.average(),
		AverageReceive: r.receiveWindow.average(),
		ErrorRate:      errRate,
		RecentSends:    r.sendWindow.snapshot(),
		RecentReceives: r.receiveWindow.snapshot(),
	}
}
