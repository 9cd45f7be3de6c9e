package s7

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/s7gopher/s7/pkg/transport"
)

// runStateMachine is the connection state machine's driver goroutine
// (§4.2–§4.5). It owns the Disconnected/TcpConnecting/IsoHandshake/
// CommSetup/Ready/Degraded transitions and is the only caller of
// Dispatcher.Connect/Disconnect: the dispatcher itself never initiates a
// connect or decides to tear one down, it only executes what this loop
// asks of it (§9 "ownership of the socket moves out of the handshake into
// the dispatcher").
func (c *Client) runStateMachine(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connectOnce(ctx); err != nil {
			attempt++
			c.session.setPhase(Disconnected)
			c.publishConnected(false)
			c.publishStatus(err.Error())
			wait := backoffFor(attempt)
			log.WithFields(log.Fields{"attempt": attempt, "backoff": wait, "err": err}).Warn("s7: connect attempt failed")
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return
			}
		}
		attempt = 0
		c.publishConnected(true)
		c.publishStatus("connected: " + c.ConnectionMode())

		// monitorReady blocks for the duration this connection stays healthy;
		// it returns when the session needs a restart.
		c.monitorReady(ctx)
		c.publishConnected(false)
		if ctx.Err() != nil {
			return
		}
	}
}

// connectOnce probes reachability, then walks the CPU type's TSAP profile
// sequence (§4.5) until one succeeds or they are all exhausted.
func (c *Client) connectOnce(ctx context.Context) error {
	c.session.setPhase(TcpConnecting)
	if err := transport.Probe(c.opts.IP); err != nil {
		return newErr(ConnectionLost, "probe", err)
	}

	c.session.setPhase(IsoHandshake)
	var lastErr error
	for _, profile := range c.profile.profiles {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.session.setPhase(CommSetup)
		pdu, err := c.dispatcher.Connect(ctx, profile, c.opts.Rack, c.opts.Slot, c.profile.pduHint)
		if err != nil {
			lastErr = err
			c.session.setPhase(IsoHandshake)
			continue
		}
		c.session.mu.Lock()
		c.session.negotiatedPDU = pdu
		c.session.activeProfile = profile
		c.session.mu.Unlock()
		c.session.recordSuccess()
		c.session.setPhase(Ready)
		return nil
	}
	if lastErr == nil {
		lastErr = newErr(ConnectionLost, "connect", context.DeadlineExceeded)
	}
	return lastErr
}

// monitorReady watches the session's liveness while Ready, reacting to
// either an explicit restart signal (an operation already classified the
// failure as fatal) or a periodic staleness check (§4.2's watchdog on the
// state machine itself), and returns once either fires so the caller can
// reconnect from the top.
func (c *Client) monitorReady(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.restartReq:
			c.forceRestart("operation reported a fatal error")
			return
		case <-ticker.C:
			if c.session.checkStale() {
				c.forceRestart("session stale: no successful exchange in " + staleAfter.String())
				return
			}
			if c.session.ConsecutiveErrors() >= restartThreshold {
				c.forceRestart("too many consecutive errors")
				return
			}
		}
	}
}

// forceRestart tears down the current connection so runStateMachine's outer
// loop reconnects from scratch. Disconnect errors are logged, not fatal:
// the socket is presumed already unusable.
func (c *Client) forceRestart(reason string) {
	log.WithField("reason", reason).Warn("s7: forcing reconnect")
	c.session.setPhase(Degraded)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.dispatcher.Disconnect(ctx); err != nil {
		log.WithError(err).Debug("s7: disconnect during forced restart")
	}
	c.session.setPhase(Disconnected)
}
