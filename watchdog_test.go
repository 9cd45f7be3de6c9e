package s7

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/address"
	"github.com/s7gopher/s7/pkg/s7type"
	"github.com/s7gopher/s7/pkg/tagtable"
)

func TestWriteWatchdogOnceSkipsWhenNotReady(t *testing.T) {
	c := newBareClient(t)
	c.watchdogTag = &tagtable.Tag{
		Name:        "__watchdog__",
		Address:     address.Address{Area: address.AreaDataBlock, DB: 1, ByteOffset: 0},
		Kind:        s7type.KindWord,
		ArrayLength: 1,
		DoNotPoll:   true,
	}
	// session is Disconnected; writeWatchdogOnce must return immediately
	// without touching the dispatcher, which has no live connection.
	c.writeWatchdogOnce(context.Background())
}

func TestFirstOr(t *testing.T) {
	assert.EqualValues(t, 9, firstOr(nil, 9))
	assert.EqualValues(t, 3, firstOr([]byte{3, 4}, 9))
}
