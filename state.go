package s7

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/s7gopher/s7/pkg/frame"
)

// Phase is the connection state machine's current position.
type Phase uint8

const (
	Disconnected Phase = iota
	TcpConnecting
	IsoHandshake
	CommSetup
	Ready
	Degraded
	Closing
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "Disconnected"
	case TcpConnecting:
		return "TcpConnecting"
	case IsoHandshake:
		return "IsoHandshake"
	case CommSetup:
		return "CommSetup"
	case Ready:
		return "Ready"
	case Degraded:
		return "Degraded"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// staleAfter is how long without a successful exchange while nominally
// Ready before a poll is counted as suspect.
const staleAfter = 120 * time.Second

// restartThreshold is the consecutive-error count that forces a circuit
// breaker restart.
const restartThreshold = 5

// session holds the connection state machine's shared fields. The machine
// itself runs as one goroutine (Client.runStateMachine); phase and consecutiveErrors
// are read by other goroutines (the poller, the watchdog, callers) without
// synchronizing with that goroutine, so they are atomics.
type session struct {
	phase atomic.Int32

	consecutiveErrors atomic.Int32
	suspectPolls      atomic.Int32

	mu                sync.RWMutex
	negotiatedPDU     uint16
	activeProfile     frame.Profile
	lastSuccessAt     time.Time

	closing atomic.Bool
}

func newSession() *session {
	s := &session{}
	s.phase.Store(int32(Disconnected))
	return s
}

func (s *session) Phase() Phase { return Phase(s.phase.Load()) }

func (s *session) setPhase(p Phase) {
	old := Phase(s.phase.Swap(int32(p)))
	if old != p {
		log.WithFields(log.Fields{"from": old, "to": p}).Debug("s7: phase transition")
	}
}

func (s *session) NegotiatedPDULength() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.negotiatedPDU
}

func (s *session) ActiveProfile() frame.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProfile
}

func (s *session) ConsecutiveErrors() int {
	return int(s.consecutiveErrors.Load())
}

// recordSuccess clears the error streak and marks the liveness timestamp.
func (s *session) recordSuccess() {
	s.consecutiveErrors.Store(0)
	s.suspectPolls.Store(0)
	s.mu.Lock()
	s.lastSuccessAt = time.Now()
	s.mu.Unlock()
}

// recordError bumps the error streak, returning true if it has reached the
// restart threshold.
func (s *session) recordError() bool {
	n := s.consecutiveErrors.Add(1)
	return n >= restartThreshold
}

// checkStale reports whether the session looks stale: nominally Ready but
// quiet for longer than staleAfter. Three consecutive suspect checks signal
// a forced restart.
func (s *session) checkStale() bool {
	if s.Phase() != Ready {
		s.suspectPolls.Store(0)
		return false
	}
	s.mu.RLock()
	last := s.lastSuccessAt
	s.mu.RUnlock()
	if last.IsZero() || time.Since(last) <= staleAfter {
		s.suspectPolls.Store(0)
		return false
	}
	n := s.suspectPolls.Add(1)
	log.WithField("suspect_polls", n).Warn("s7: session looks stale")
	return n >= 3
}

// backoffFor returns the reconnect delay for the Nth consecutive failure:
// min(2^N, 30) seconds.
func backoffFor(n int) time.Duration {
	if n <= 0 {
		n = 1
	}
	d := time.Duration(1) << uint(n) // 2^n
	capped := 30 * time.Second
	sec := d * time.Second
	if sec > capped || sec <= 0 {
		return capped
	}
	return sec
}
