package s7

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/s7gopher/s7/pkg/frame"
	"github.com/s7gopher/s7/pkg/metrics"
	"github.com/s7gopher/s7/pkg/transport"
)

// ticketKind names the kind of exchange a ticket carries through the
// dispatcher's single-writer loop.
type ticketKind uint8

const (
	ticketConnect ticketKind = iota
	ticketDisconnect
	ticketRead
	ticketWrite
	ticketSZL
)

// ticket is the dispatcher's internal request envelope (C6's "request
// ticket"). It is allocated by the enqueuing call and destroyed once result
// has been delivered.
type ticket struct {
	kind ticketKind

	// connect
	profile      frame.Profile
	rack, slot   int
	requestedPDU uint16

	// read / write
	specs      []frame.VarSpec
	writeItems []frame.WriteItem

	// szl
	szlID, szlIndex uint16

	result chan ticketResult
}

// ticketResult is the completed outcome of one ticket.
type ticketResult struct {
	readItems     []frame.ReadItem
	writeCodes    []byte
	szlData       []byte
	negotiatedPDU uint16
	err           error
}

// ticketQueueDepth bounds the number of in-flight tickets waiting for the
// dispatcher loop; callers beyond this block on enqueue, which is the
// desired backpressure (the socket does one exchange at a time anyway).
const ticketQueueDepth = 32

// Dispatcher is the single owner of the TCP socket. It runs one goroutine
// (Run) that drains a ticket queue and performs exactly one S7 exchange at a
// time; every other goroutine in the package reaches the socket only by
// enqueuing a ticket here.
type Dispatcher struct {
	ip      string
	timeout time.Duration
	metrics *metrics.Recorder

	tickets chan *ticket
	tr      *transport.Transport
	pduRef  uint16
}

// NewDispatcher constructs a Dispatcher for the given PLC IP. timeout is the
// per-socket-operation deadline (§4.4); it applies to every send/recv the
// dispatcher performs.
func NewDispatcher(ip string, timeout time.Duration, recorder *metrics.Recorder) *Dispatcher {
	return &Dispatcher{
		ip:      ip,
		timeout: timeout,
		metrics: recorder,
		tickets: make(chan *ticket, ticketQueueDepth),
	}
}

// Run drains the ticket queue until ctx is cancelled. It is meant to be
// started once, in its own goroutine, for the lifetime of the Client.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if d.tr != nil {
				d.tr.Close()
			}
			d.drain(newErr(Cancelled, "dispatcher", ctx.Err()))
			return
		case t := <-d.tickets:
			d.handle(t)
		}
	}
}

// drain fails every ticket still sitting in the queue with err, used when
// the dispatcher is shutting down.
func (d *Dispatcher) drain(err error) {
	for {
		select {
		case t := <-d.tickets:
			t.result <- ticketResult{err: err}
		default:
			return
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, t *ticket) (ticketResult, error) {
	t.result = make(chan ticketResult, 1)
	select {
	case d.tickets <- t:
	case <-ctx.Done():
		return ticketResult{}, newErr(Cancelled, "enqueue", ctx.Err())
	}
	select {
	case r := <-t.result:
		return r, r.err
	case <-ctx.Done():
		return ticketResult{}, newErr(Cancelled, "await completion", ctx.Err())
	}
}

func (d *Dispatcher) handle(t *ticket) {
	switch t.kind {
	case ticketConnect:
		d.handleConnect(t)
	case ticketDisconnect:
		d.handleDisconnect(t)
	case ticketRead:
		d.handleRead(t)
	case ticketWrite:
		d.handleWrite(t)
	case ticketSZL:
		d.handleSZL(t)
	}
}

// Connect enqueues a fresh-socket connect attempt for one TSAP profile: TCP
// dial, COTP Connection Request/Confirm, then S7 Communication Setup. On any
// failure the partially opened socket is closed and an error is returned; on
// success the dispatcher becomes the sole owner of the new connection.
func (d *Dispatcher) Connect(ctx context.Context, profile frame.Profile, rack, slot int, requestedPDU uint16) (uint16, error) {
	r, err := d.enqueue(ctx, &ticket{kind: ticketConnect, profile: profile, rack: rack, slot: slot, requestedPDU: requestedPDU})
	if err != nil {
		return 0, err
	}
	return r.negotiatedPDU, nil
}

// Disconnect closes the socket, if any. Safe to call when already closed.
func (d *Dispatcher) Disconnect(ctx context.Context) error {
	_, err := d.enqueue(ctx, &ticket{kind: ticketDisconnect})
	return err
}

// ReadVar enqueues a ReadVar exchange for one or more variable
// specifications, returning one ReadItem per spec in order.
func (d *Dispatcher) ReadVar(ctx context.Context, specs []frame.VarSpec) ([]frame.ReadItem, error) {
	r, err := d.enqueue(ctx, &ticket{kind: ticketRead, specs: specs})
	if err != nil {
		return nil, err
	}
	return r.readItems, nil
}

// WriteVar enqueues a WriteVar exchange, returning one return code per item.
func (d *Dispatcher) WriteVar(ctx context.Context, items []frame.WriteItem) ([]byte, error) {
	r, err := d.enqueue(ctx, &ticket{kind: ticketWrite, writeItems: items})
	if err != nil {
		return nil, err
	}
	return r.writeCodes, nil
}

// SZL enqueues a full SZL read: the initial SZL1 exchange plus as many SZL2
// continuation exchanges as the server's more-follows flag demands. It runs
// as a single ticket per §4.6 ("SZL runs as a single ticket that internally
// issues multiple frames").
func (d *Dispatcher) SZL(ctx context.Context, szlID, szlIndex uint16) ([]byte, error) {
	r, err := d.enqueue(ctx, &ticket{kind: ticketSZL, szlID: szlID, szlIndex: szlIndex})
	if err != nil {
		return nil, err
	}
	return r.szlData, nil
}

func (d *Dispatcher) handleConnect(t *ticket) {
	if d.tr != nil {
		d.tr.Close()
		d.tr = nil
	}
	tr := transport.New(d.timeout)
	if err := tr.Dial(d.ip, int(t.requestedPDU)); err != nil {
		t.result <- ticketResult{err: newErr(ConnectionLost, "dial", err)}
		return
	}

	cr := frame.BuildConnectionRequest(t.profile, t.rack, t.slot)
	resp, err := d.exchangeRaw(tr, cr)
	if err != nil {
		tr.Close()
		t.result <- ticketResult{err: err}
		return
	}
	if err := frame.ParseConnectionConfirm(resp); err != nil {
		tr.Close()
		t.result <- ticketResult{err: newErr(WrongVarFormat, "connection confirm", err)}
		return
	}

	d.pduRef = frame.NextPDURef(d.pduRef)
	scReq := frame.WrapDT(frame.BuildSetupCommRequest(d.pduRef, t.requestedPDU))
	scRespFrame, err := d.exchangeRaw(tr, scReq)
	if err != nil {
		tr.Close()
		t.result <- ticketResult{err: err}
		return
	}
	scPDU, err := frame.UnwrapDT(scRespFrame)
	if err != nil {
		tr.Close()
		t.result <- ticketResult{err: newErr(WrongVarFormat, "setup comm", err)}
		return
	}
	scResult, err := frame.ParseSetupCommResponse(scPDU)
	if err != nil {
		tr.Close()
		t.result <- ticketResult{err: newErr(WrongVarFormat, "setup comm", err)}
		return
	}

	d.tr = tr
	log.WithFields(log.Fields{"profile": t.profile, "pdu": scResult.NegotiatedPDULength}).Debug("s7: connected")
	t.result <- ticketResult{negotiatedPDU: scResult.NegotiatedPDULength}
}

func (d *Dispatcher) handleDisconnect(t *ticket) {
	if d.tr != nil {
		d.tr.Close()
		d.tr = nil
	}
	t.result <- ticketResult{}
}

func (d *Dispatcher) handleRead(t *ticket) {
	if d.tr == nil {
		t.result <- ticketResult{err: newErr(ConnectionLost, "read", fmt.Errorf("no active connection"))}
		return
	}
	d.pduRef = frame.NextPDURef(d.pduRef)
	req := frame.WrapDT(frame.BuildReadVarRequest(d.pduRef, t.specs))
	respPDU, err := d.exchange(req)
	if err != nil {
		t.result <- ticketResult{err: err}
		return
	}
	items, err := frame.ParseReadVarResponse(respPDU, len(t.specs))
	if err != nil {
		t.result <- ticketResult{err: newErr(WrongVarFormat, "read response", err)}
		return
	}
	t.result <- ticketResult{readItems: items}
}

func (d *Dispatcher) handleWrite(t *ticket) {
	if d.tr == nil {
		t.result <- ticketResult{err: newErr(ConnectionLost, "write", fmt.Errorf("no active connection"))}
		return
	}
	d.pduRef = frame.NextPDURef(d.pduRef)
	req := frame.WrapDT(frame.BuildWriteVarRequest(d.pduRef, t.writeItems))
	respPDU, err := d.exchange(req)
	if err != nil {
		t.result <- ticketResult{err: err}
		return
	}
	codes, err := frame.ParseWriteVarResponse(respPDU, len(t.writeItems))
	if err != nil {
		t.result <- ticketResult{err: newErr(WrongVarFormat, "write response", err)}
		return
	}
	t.result <- ticketResult{writeCodes: codes}
}

func (d *Dispatcher) handleSZL(t *ticket) {
	if d.tr == nil {
		t.result <- ticketResult{err: newErr(ConnectionLost, "szl", fmt.Errorf("no active connection"))}
		return
	}
	d.pduRef = frame.NextPDURef(d.pduRef)
	seq := byte(d.pduRef)
	req := frame.WrapDT(frame.BuildSZLRequest(d.pduRef, seq, t.szlID, t.szlIndex))
	respPDU, err := d.exchange(req)
	if err != nil {
		t.result <- ticketResult{err: err}
		return
	}
	chunk, err := frame.ParseSZLResponseFrame(respPDU, true)
	if err != nil {
		t.result <- ticketResult{err: newErr(WrongVarFormat, "szl response", err)}
		return
	}
	data := frame.AccumulateSZL(nil, chunk)
	for chunk.MoreFollows {
		d.pduRef = frame.NextPDURef(d.pduRef)
		contReq := frame.WrapDT(frame.BuildSZLContinuationRequest(d.pduRef, chunk.SeqIn))
		respPDU, err = d.exchange(contReq)
		if err != nil {
			t.result <- ticketResult{err: err}
			return
		}
		chunk, err = frame.ParseSZLResponseFrame(respPDU, false)
		if err != nil {
			t.result <- ticketResult{err: newErr(WrongVarFormat, "szl continuation", err)}
			return
		}
		data = frame.AccumulateSZL(data, chunk)
	}
	t.result <- ticketResult{szlData: data}
}

// exchange sends a wrapped S7 PDU and returns the unwrapped PDU of the
// response (TPKT+COTP stripped).
func (d *Dispatcher) exchange(req []byte) ([]byte, error) {
	respFrame, err := d.exchangeRaw(d.tr, req)
	if err != nil {
		return nil, err
	}
	pdu, err := frame.UnwrapDT(respFrame)
	if err != nil {
		return nil, newErr(WrongVarFormat, "exchange", err)
	}
	return pdu, nil
}

// exchangeRaw sends req and returns the raw TPKT-framed response, recording
// byte/latency metrics and translating transport errors into the §7
// taxonomy.
func (d *Dispatcher) exchangeRaw(tr *transport.Transport, req []byte) ([]byte, error) {
	start := time.Now()
	if err := tr.SendAll(req); err != nil {
		return nil, classifyTransportErr("send", err)
	}
	if d.metrics != nil {
		d.metrics.AddSent(len(req))
		d.metrics.RecordSend(time.Since(start))
	}
	return d.recv(tr)
}

func (d *Dispatcher) recv(tr *transport.Transport) ([]byte, error) {
	start := time.Now()
	resp, err := tr.RecvTPKTFrame()
	if err != nil {
		return nil, classifyTransportErr("recv", err)
	}
	if d.metrics != nil {
		d.metrics.AddReceived(len(resp))
		d.metrics.RecordReceive(time.Since(start))
	}
	return resp, nil
}

func classifyTransportErr(op string, err error) error {
	switch err.(type) {
	case transport.Timeout:
		return newErr(Timeout, op, err)
	case transport.PeerClosed:
		return newErr(ConnectionLost, op, err)
	default:
		return newErr(ConnectionLost, op, err)
	}
}
