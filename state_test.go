package s7

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionStartsDisconnected(t *testing.T) {
	s := newSession()
	assert.Equal(t, Disconnected, s.Phase())
}

func TestSetPhaseTransitions(t *testing.T) {
	s := newSession()
	s.setPhase(TcpConnecting)
	assert.Equal(t, TcpConnecting, s.Phase())
	s.setPhase(Ready)
	assert.Equal(t, Ready, s.Phase())
}

func TestRecordSuccessClearsErrorStreak(t *testing.T) {
	s := newSession()
	s.recordError()
	s.recordError()
	assert.EqualValues(t, 2, s.ConsecutiveErrors())
	s.recordSuccess()
	assert.EqualValues(t, 0, s.ConsecutiveErrors())
}

func TestRecordErrorReachesRestartThreshold(t *testing.T) {
	s := newSession()
	var tripped bool
	for i := 0; i < restartThreshold; i++ {
		tripped = s.recordError()
	}
	assert.True(t, tripped)
}

func TestCheckStaleOnlyWhenReady(t *testing.T) {
	s := newSession()
	s.setPhase(TcpConnecting)
	assert.False(t, s.checkStale())
}

func TestCheckStaleRequiresThreeSuspectPolls(t *testing.T) {
	s := newSession()
	s.setPhase(Ready)
	s.mu.Lock()
	s.lastSuccessAt = time.Now().Add(-2 * staleAfter)
	s.mu.Unlock()

	assert.False(t, s.checkStale())
	assert.False(t, s.checkStale())
	assert.True(t, s.checkStale())
}

func TestCheckStaleResetsOnFreshSuccess(t *testing.T) {
	s := newSession()
	s.setPhase(Ready)
	s.mu.Lock()
	s.lastSuccessAt = time.Now().Add(-2 * staleAfter)
	s.mu.Unlock()
	s.checkStale()
	s.checkStale()

	s.recordSuccess() // should reset suspectPolls
	assert.False(t, s.checkStale())
}

func TestBackoffForIsBoundedAndMonotonicUntilCap(t *testing.T) {
	prev := time.Duration(0)
	for n := 1; n <= 4; n++ {
		d := backoffFor(n)
		assert.True(t, d > prev)
		prev = d
	}
	assert.Equal(t, 30*time.Second, backoffFor(10))
	assert.Equal(t, backoffFor(1), backoffFor(0))
}
