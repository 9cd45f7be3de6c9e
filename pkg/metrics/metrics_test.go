package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorderZeroValue(t *testing.T) {
	var r Recorder
	snap := r.Snapshot()
	assert.EqualValues(t, 0, snap.BytesSent)
	assert.EqualValues(t, 0, snap.BytesReceived)
	assert.EqualValues(t, 0, snap.OperationCount)
	assert.EqualValues(t, 0, snap.ErrorRate)
}

func TestAddSentReceived(t *testing.T) {
	var r Recorder
	r.AddSent(10)
	r.AddSent(5)
	r.AddReceived(20)

	snap := r.Snapshot()
	assert.EqualValues(t, 15, snap.BytesSent)
	assert.EqualValues(t, 20, snap.BytesReceived)
}

func TestRecordSendReceiveAverages(t *testing.T) {
	var r Recorder
	r.RecordSend(10 * time.Millisecond)
	r.RecordSend(20 * time.Millisecond)
	r.RecordReceive(5 * time.Millisecond)

	snap := r.Snapshot()
	assert.EqualValues(t, 2, snap.OperationCount)
	assert.Equal(t, 15*time.Millisecond, snap.AverageSend)
	assert.Equal(t, 5*time.Millisecond, snap.AverageReceive)
	assert.Len(t, snap.RecentSends, 2)
}

func TestErrorRate(t *testing.T) {
	var r Recorder
	r.RecordSend(time.Millisecond)
	r.RecordSend(time.Millisecond)
	r.RecordSend(time.Millisecond)
	r.RecordError()

	snap := r.Snapshot()
	assert.EqualValues(t, 1, snap.ErrorCount)
	assert.Equal(t, 1.0/3.0, snap.ErrorRate)
}

func TestWindowWrapsAndPreservesOrder(t *testing.T) {
	var r Recorder
	for i := 0; i < windowSize+10; i++ {
		r.RecordSend(time.Duration(i) * time.Millisecond)
	}
	snap := r.Snapshot()
	assert.Len(t, snap.RecentSends, windowSize)
	// The oldest 10 pushes should have been evicted; first entry is now 10ms.
	assert.Equal(t, 10*time.Millisecond, snap.RecentSends[0])
	last := snap.RecentSends[len(snap.RecentSends)-1]
	assert.Equal(t, time.Duration(windowSize+9)*time.Millisecond, last)
}
