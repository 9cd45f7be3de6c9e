package s7

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/s7type"
)

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.EqualValues(t, 100, o.PollIntervalMS)
	assert.EqualValues(t, 4500, o.WatchdogValue)
	assert.EqualValues(t, 10, o.WatchdogIntervalS)
	assert.Equal(t, 10*time.Second, o.SocketTimeout)
	assert.Equal(t, 5*time.Second, o.RequestTimeout)

	custom := Options{PollIntervalMS: 50, WatchdogValue: 1, WatchdogIntervalS: 3, SocketTimeout: time.Second, RequestTimeout: time.Second}.withDefaults()
	assert.EqualValues(t, 50, custom.PollIntervalMS)
	assert.EqualValues(t, 3, custom.WatchdogIntervalS)
}

func TestNewClientRequiresIP(t *testing.T) {
	_, err := NewClient(Options{CPUType: "s7-1200"})
	assert.NotNil(t, err)
}

func TestNewClientRejectsUnknownCPUType(t *testing.T) {
	_, err := NewClient(Options{IP: "127.0.0.1", CPUType: "not-a-real-cpu"})
	assert.NotNil(t, err)
}

func TestNewClientRejectsBadWatchdogAddress(t *testing.T) {
	_, err := NewClient(Options{IP: "127.0.0.1", CPUType: "s7-1200", WatchdogAddress: "not-an-address"})
	assert.NotNil(t, err)
}

// newLoopbackClient starts a real Client against an address nothing listens
// on (127.0.0.1 with an unused high port), so the background connect loop
// fails immediately with connection-refused and backs off, without ever
// blocking this test on real network I/O.
func newLoopbackClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Options{
		IP:             "127.0.0.1:1",
		CPUType:        "s7-1200",
		SocketTimeout:  200 * time.Millisecond,
		RequestTimeout: 200 * time.Millisecond,
		PollIntervalMS: 20,
	})
	assert.Nil(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientStartsDisconnectedAndReachesNotReadyErrors(t *testing.T) {
	c := newLoopbackClient(t)
	assert.False(t, c.Connected())

	assert.Nil(t, c.DeclareTag("Tag1", "DB1.DBW0", s7type.KindWord, 1, false))
	_, ok := c.GetTag("tag1")
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := c.ReadValue(ctx, "Tag1")
	assert.NotNil(t, err)
	assert.NotNil(t, c.WriteValue(ctx, "Tag1", uint16(1)))

	c.RemoveTag("Tag1")
	_, ok = c.GetTag("Tag1")
	assert.False(t, ok)
}

func TestReadWriteValueUnknownTag(t *testing.T) {
	c := newLoopbackClient(t)
	ctx := context.Background()
	_, err := c.ReadValue(ctx, "Ghost")
	assert.NotNil(t, err)
	assert.NotNil(t, c.WriteValue(ctx, "Ghost", 1))
}

func TestConnectionModeFormat(t *testing.T) {
	c := newLoopbackClient(t)
	assert.NotEmpty(t, c.ConnectionMode())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := newLoopbackClient(t)
	assert.Nil(t, c.Close())
	assert.Nil(t, c.Close())
}
