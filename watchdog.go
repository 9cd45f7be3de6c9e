package s7

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/s7gopher/s7/pkg/frame"
	"github.com/s7gopher/s7/pkg/s7type"
)

// runWatchdog periodically writes the configured DBW watchdog value while
// the session is Ready (§4.9). A failed write is logged and counted like
// any other operation error, but it never drives the state machine
// directly: watchdog.go only ever calls handleOpError, the same path every
// other subsystem uses, so a flapping watchdog write degrades the
// connection through the ordinary error-streak/restart mechanism rather
// than a bespoke one.
func (c *Client) runWatchdog(ctx context.Context) {
	interval := time.Duration(c.opts.WatchdogIntervalS) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeWatchdogOnce(ctx)
		}
	}
}

func (c *Client) writeWatchdogOnce(ctx context.Context) {
	if c.session.Phase() != Ready {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	spec := tagVarSpec(c.watchdogTag)
	data := s7type.EncodeWord(c.opts.WatchdogValue)
	item := frame.WriteItem{Spec: spec, Data: data}
	codes, err := c.dispatcher.WriteVar(reqCtx, []frame.WriteItem{item})
	if err != nil {
		log.WithError(err).Warn("s7: watchdog write failed")
		c.handleOpError(err)
		return
	}
	if len(codes) != 1 || codes[0] != 0xFF {
		log.WithField("codes", codes).Warn("s7: watchdog write rejected")
		c.handleOpError(newErr(WriteData, "watchdog", &frame.BadReturnCode{Code: firstOr(codes, 0)}))
		return
	}
	c.session.recordSuccess()
}

func firstOr(b []byte, fallback byte) byte {
	if len(b) == 0 {
		return fallback
	}
	return b[0]
}
