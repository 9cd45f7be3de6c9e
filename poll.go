package s7

import (
	"context"
	"reflect"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/s7gopher/s7/pkg/tagtable"
)

// runPoller is the polling engine's driver goroutine (§4.8). On every tick
// it: (1) checks for a pause request and, if present, publishes paused=true
// and waits for the request to clear; (2) snapshots the pollable tag set;
// (3) reads each tag; (4) on success, decodes and compares against the
// tag's last known value, publishing only on change; (5) on failure, routes
// the error through handleOpError; (6) times the whole scan; (7) publishes
// the scan duration on the read-time stream.
func (c *Client) runPoller(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *Client) pollOnce(ctx context.Context) {
	if c.pauseRequested.Load() {
		c.pauseState.publish(true)
		c.waitForResume(ctx)
		c.pauseState.publish(false)
		return
	}
	if c.session.Phase() != Ready {
		return
	}

	start := time.Now()
	pdu := int(c.session.NegotiatedPDULength())
	for _, tag := range c.tags.SnapshotPollable() {
		if ctx.Err() != nil {
			return
		}
		c.pollTag(ctx, tag, pdu)
	}
	c.publishReadTime(time.Since(start))
}

// pollTag reads one tag and, if its decoded value differs from what the
// table already holds, stores it and publishes a ValueEvent. Read failures
// are routed to handleOpError, which decides whether they warrant a
// restart; they do not stop the scan of the remaining tags.
func (c *Client) pollTag(ctx context.Context, tag *tagtable.Tag, pdu int) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	v, err := readTag(reqCtx, c.dispatcher, tag, pdu)
	if err != nil {
		c.handleOpError(err)
		return
	}
	c.session.recordSuccess()

	prev, had := tag.Value()
	if had && reflect.DeepEqual(prev, v) {
		return
	}
	tag.SetValue(v)
	c.publishValue(tag.Name, v)
}

// waitForResume blocks until pauseRequested clears or the pause drags on
// long enough that the poller gives up and resumes scanning anyway, so a
// caller that forgets to release the pause cannot wedge polling forever.
func (c *Client) waitForResume(ctx context.Context) {
	deadline := time.NewTimer(c.opts.RequestTimeout * 4)
	defer deadline.Stop()
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()
	for {
		if !c.pauseRequested.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			log.Warn("s7: pause outlived its deadline, resuming poll anyway")
			return
		case <-poll.C:
		}
	}
}
