package s7

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/metrics"
)

func newBareClientForStateMachine(t *testing.T) *Client {
	t.Helper()
	profile, err := resolveCPUProfile("s7-1200")
	if err != nil {
		t.Fatalf("resolveCPUProfile: %v", err)
	}
	opts := Options{
		IP:             "127.0.0.1:1",
		CPUType:        "s7-1200",
		SocketTimeout:  100 * time.Millisecond,
		RequestTimeout: 100 * time.Millisecond,
	}.withDefaults()
	return &Client{
		opts:       opts,
		profile:    profile,
		session:    newSession(),
		dispatcher: NewDispatcher(opts.IP, opts.SocketTimeout, nil),
		metrics:    &metrics.Recorder{},
		observers:  newObservers(),
		restartReq: make(chan struct{}, 1),
	}
}

func TestConnectOnceFailsAgainstUnreachableHost(t *testing.T) {
	c := newBareClientForStateMachine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := c.connectOnce(ctx)
	assert.NotNil(t, err)
	assert.NotEqual(t, Ready, c.session.Phase())
}

func TestForceRestartSetsDisconnected(t *testing.T) {
	c := newBareClientForStateMachine(t)
	go c.dispatcher.Run(context.Background())
	c.session.setPhase(Ready)
	c.forceRestart("test")
	assert.Equal(t, Disconnected, c.session.Phase())
}

func TestMonitorReadyReturnsOnRestartRequest(t *testing.T) {
	c := newBareClientForStateMachine(t)
	go c.dispatcher.Run(context.Background())
	c.session.setPhase(Ready)
	c.restartReq <- struct{}{}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.monitorReady(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("monitorReady should return promptly when restartReq fires")
	}
}

func TestMonitorReadyReturnsOnContextCancel(t *testing.T) {
	c := newBareClientForStateMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.monitorReady(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitorReady should return immediately when ctx is already cancelled")
	}
}
