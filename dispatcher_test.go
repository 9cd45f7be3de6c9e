package s7

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/frame"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, context.CancelFunc) {
	t.Helper()
	d := NewDispatcher("127.0.0.1", time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(cancel)
	return d, cancel
}

func TestDisconnectWithoutConnectionIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.Nil(t, d.Disconnect(context.Background()))
}

func TestReadVarWithoutConnectionFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.ReadVar(context.Background(), []frame.VarSpec{{}})
	assert.NotNil(t, err)
	var s7err *S7Error
	assert.True(t, errors.As(err, &s7err))
	assert.Equal(t, ConnectionLost, s7err.Code)
}

func TestWriteVarWithoutConnectionFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.WriteVar(context.Background(), []frame.WriteItem{{}})
	assert.NotNil(t, err)
}

func TestSZLWithoutConnectionFails(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.SZL(context.Background(), 0x001C, 0)
	assert.NotNil(t, err)
}

func TestEnqueueRespectsContextCancellation(t *testing.T) {
	d := NewDispatcher("127.0.0.1", time.Second, nil) // Run is never started
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.ReadVar(ctx, []frame.VarSpec{{}})
	assert.NotNil(t, err)
	var s7err *S7Error
	if errors.As(err, &s7err) {
		assert.Equal(t, Cancelled, s7err.Code)
	}
}

func TestRunDrainsQueueOnCancel(t *testing.T) {
	d := NewDispatcher("127.0.0.1", time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	cancel()

	// Give the loop a moment to observe cancellation before a fresh ticket arrives.
	time.Sleep(10 * time.Millisecond)
	callCtx, callCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer callCancel()
	_, err := d.ReadVar(callCtx, []frame.VarSpec{{}})
	assert.NotNil(t, err)
}
