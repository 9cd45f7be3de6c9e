package s7

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/s7gopher/s7/pkg/address"
	"github.com/s7gopher/s7/pkg/metrics"
	"github.com/s7gopher/s7/pkg/s7type"
	"github.com/s7gopher/s7/pkg/tagtable"
)

// Options is the closed set of recognised connection options (§6.5).
type Options struct {
	CPUType string // required: "s7-200", "s7-300", "s7-400", "s7-1200", "s7-1500", "logo"
	IP      string // required
	Rack    int    // required
	Slot    int    // required

	PollIntervalMS int // default 100

	WatchdogAddress   string // DBW-typed address; absent disables the watchdog
	WatchdogValue     uint16 // default 4500
	WatchdogIntervalS int    // default 10, >= 1

	SocketTimeout  time.Duration // per-socket-op deadline, default 10s
	RequestTimeout time.Duration // per-ticket deadline, default 5s
}

func (o Options) withDefaults() Options {
	if o.PollIntervalMS <= 0 {
		o.PollIntervalMS = 100
	}
	if o.WatchdogValue == 0 {
		o.WatchdogValue = 4500
	}
	if o.WatchdogIntervalS <= 0 {
		o.WatchdogIntervalS = 10
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = 10 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 5 * time.Second
	}
	return o
}

// Client is the core instance: it owns the tag table, the connection state
// machine, the request dispatcher, the polling engine and the watchdog
// writer for one PLC session.
type Client struct {
	opts    Options
	profile cpuProfile

	tags       *tagtable.Table
	session    *session
	dispatcher *Dispatcher
	metrics    *metrics.Recorder
	observers  *observers

	pauseRequested boolFlag
	pauseState     *broadcaster[bool]

	watchdogTag *tagtable.Tag

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	restartReq chan struct{}

	closeOnce sync.Once
}

// boolFlag is a tiny atomic-bool wrapper kept local to this file to avoid
// importing sync/atomic's generic helpers in two places.
type boolFlag struct{ v chan bool }

func newBoolFlag() boolFlag {
	f := boolFlag{v: make(chan bool, 1)}
	f.v <- false
	return f
}

func (f boolFlag) Store(want bool) {
	<-f.v
	f.v <- want
}

func (f boolFlag) Load() bool {
	v := <-f.v
	f.v <- v
	return v
}

// NewClient validates opts and starts the connection state machine, polling
// engine and (if configured) watchdog writer as background goroutines. The
// returned Client is immediately usable; DeclareTag and the synchronous API
// work regardless of current connection phase (reads/writes simply fail
// until phase reaches Ready).
func NewClient(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if opts.IP == "" {
		return nil, fmt.Errorf("s7: Options.IP is required")
	}
	profile, err := resolveCPUProfile(opts.CPUType)
	if err != nil {
		return nil, err
	}

	recorder := &metrics.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		opts:           opts,
		profile:        profile,
		tags:           tagtable.New(),
		session:        newSession(),
		dispatcher:     NewDispatcher(opts.IP, opts.SocketTimeout, recorder),
		metrics:        recorder,
		observers:      newObservers(),
		pauseRequested: newBoolFlag(),
		pauseState:     newBroadcaster[bool](),
		ctx:            ctx,
		cancel:         cancel,
		restartReq:     make(chan struct{}, 1),
	}

	if opts.WatchdogAddress != "" {
		addr, err := address.Parse(opts.WatchdogAddress)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("s7: watchdog_address: %w", err)
		}
		c.watchdogTag = &tagtable.Tag{
			Name:        "__watchdog__",
			Address:     addr,
			Kind:        s7type.KindWord,
			ArrayLength: 1,
			DoNotPoll:   true,
		}
	}

	c.wg.Add(3)
	go func() { defer c.wg.Done(); c.dispatcher.Run(ctx) }()
	go func() { defer c.wg.Done(); c.runStateMachine(ctx) }()
	go func() { defer c.wg.Done(); c.runPoller(ctx) }()
	if c.watchdogTag != nil {
		c.wg.Add(1)
		go func() { defer c.wg.Done(); c.runWatchdog(ctx) }()
	}

	return c, nil
}

// Close disposes the client: it stops the state machine, poller and
// watchdog, closes the socket and cancels any tickets waiting in the
// dispatcher queue. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.session.setPhase(Closing)
		c.cancel()
		c.wg.Wait()
	})
	return nil
}

// DeclareTag registers or replaces a named tag binding. array_length
// defaults to 1 when <= 0.
func (c *Client) DeclareTag(name, addr string, kind s7type.Kind, arrayLength int, doNotPoll bool) error {
	parsed, err := address.Parse(addr)
	if err != nil {
		return newErr(WrongVarFormat, "declare_tag", err)
	}
	if arrayLength <= 0 {
		arrayLength = 1
	}
	c.tags.InsertOrUpdate(&tagtable.Tag{
		Name:        name,
		Address:     parsed,
		Kind:        kind,
		ArrayLength: arrayLength,
		DoNotPoll:   doNotPoll,
	})
	return nil
}

// RemoveTag deletes a tag by name, if present.
func (c *Client) RemoveTag(name string) { c.tags.Remove(name) }

// GetTag returns the declared tag binding for name, if any.
func (c *Client) GetTag(name string) (*tagtable.Tag, bool) { return c.tags.Get(name) }

// Connected reports whether the session is currently in phase Ready.
func (c *Client) Connected() bool { return c.session.Phase() == Ready }

// Phase returns the connection state machine's current phase.
func (c *Client) Phase() Phase { return c.session.Phase() }

// MetricsSnapshot returns an immutable copy of the running counters and
// rolling latency windows (§4.10).
func (c *Client) MetricsSnapshot() metrics.Snapshot { return c.metrics.Snapshot() }

// ConnectionMode describes the active connection as a short human-readable
// string, e.g. "S7-1500 @ 10.0.0.5 rack=0 slot=1 PDU=1440".
func (c *Client) ConnectionMode() string {
	pdu := c.session.NegotiatedPDULength()
	return fmt.Sprintf("%s @ %s rack=%d slot=%d PDU=%d", c.opts.CPUType, c.opts.IP, c.opts.Rack, c.opts.Slot, pdu)
}

// ReadValue performs a synchronous read-through of one tag, coordinating
// with the polling engine per the §4.8 pause contract so the caller never
// races the poll loop on the shared socket.
func (c *Client) ReadValue(ctx context.Context, name string) (any, error) {
	tag, ok := c.tags.Get(name)
	if !ok {
		return nil, newErr(WrongVarFormat, "read_value", fmt.Errorf("unknown tag %q", name))
	}
	if c.session.Phase() != Ready {
		return nil, newErr(ConnectionLost, "read_value", fmt.Errorf("session not ready"))
	}

	c.pauseRequested.Store(true)
	defer c.pauseRequested.Store(false)
	c.awaitPaused(ctx, true)

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	v, err := readTag(reqCtx, c.dispatcher, tag, int(c.session.NegotiatedPDULength()))
	if err != nil {
		c.handleOpError(err)
		return nil, err
	}
	c.session.recordSuccess()
	tag.SetValue(v)
	c.publishValue(name, v)
	return v, nil
}

// WriteValue stages and immediately dispatches a write of v to the named
// tag. It is fire-and-forget from the caller's perspective in the sense
// that the tag's authoritative value converges on the next poll; errors
// are also surfaced on the error stream.
func (c *Client) WriteValue(ctx context.Context, name string, v any) error {
	tag, ok := c.tags.Get(name)
	if !ok {
		return newErr(WrongVarFormat, "write_value", fmt.Errorf("unknown tag %q", name))
	}
	tag.SetPending(v)
	if c.session.Phase() != Ready {
		return newErr(ConnectionLost, "write_value", fmt.Errorf("session not ready"))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	err := writeTag(reqCtx, c.dispatcher, tag, v)
	if err != nil {
		c.handleOpError(err)
		return err
	}
	tag.TakePending()
	c.session.recordSuccess()
	return nil
}

// GetCPUInfo issues SZL 0x0011 and 0x001C and decodes the fixed-offset
// identity fields into a CPUInfo (§6.4, SPEC_FULL supplement #1).
func (c *Client) GetCPUInfo(ctx context.Context) (CPUInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	return fetchCPUInfo(reqCtx, c.dispatcher)
}

// handleOpError publishes a typed error on both observe streams, bumps the
// session's consecutive-error streak, and wakes the state machine for an
// immediate restart when the streak crosses the threshold or the error is
// itself a ConnectionLost.
func (c *Client) handleOpError(err error) {
	se, ok := err.(*S7Error)
	if !ok {
		se = newErr(ConnectionLost, "op", err)
	}
	c.publishError(se)
	restart := c.session.recordError()
	if restart || se.Code == ConnectionLost {
		select {
		case c.restartReq <- struct{}{}:
		default:
		}
	}
}

// awaitPaused blocks until the poller reports the wanted pause state, bounded
// by twice the poll interval; it gives up silently on timeout and returns
// without the wanted state having been seen.
func (c *Client) awaitPaused(ctx context.Context, want bool) {
	ch, cancel := c.pauseState.subscribe()
	defer cancel()
	bound := time.NewTimer(2 * c.pollInterval())
	defer bound.Stop()
	for {
		select {
		case v := <-ch:
			if v == want {
				return
			}
		case <-bound.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) pollInterval() time.Duration {
	return time.Duration(c.opts.PollIntervalMS) * time.Millisecond
}
