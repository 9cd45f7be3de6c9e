// Package transport owns the raw TCP socket to an S7 PLC: dial, TPKT-framed
// send/recv, reachability probing and socket option tuning.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const defaultS7Port = 102

// PeerClosed is returned by Recv when the peer closed the connection
// cleanly (a zero-byte read).
type PeerClosed struct{}

func (PeerClosed) Error() string { return "transport: peer closed connection" }

// Timeout is returned when a send or receive deadline expires.
type Timeout struct{ Op string }

func (e Timeout) Error() string { return fmt.Sprintf("transport: %s timed out", e.Op) }

// Transport owns a single TCP socket to one PLC. It is not safe for
// concurrent use; the dispatcher is the sole caller.
type Transport struct {
	conn    net.Conn
	address string
	timeout time.Duration
}

// New creates an unconnected Transport with the given per-operation
// timeout.
func New(timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Transport{timeout: timeout}
}

// Probe performs a fast reachability check before the handshake begins. It
// attempts a TCP connect to port 102 with a 2s timeout; on success the
// connection is closed immediately. The source specifies an ICMP echo
// first, falling back to TCP-connect; this implementation always does the
// TCP-connect probe, since ICMP echo requires raw-socket privilege this
// library cannot assume it has.
func Probe(ip string) error {
	addr := withDefaultPort(ip)
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("transport: probe %s unreachable: %w", addr, err)
	}
	conn.Close()
	return nil
}

func withDefaultPort(ip string) string {
	host, port, err := net.SplitHostPort(ip)
	if err != nil {
		return fmt.Sprintf("%s:%d", ip, defaultS7Port)
	}
	if port == "" {
		return fmt.Sprintf("%s:%d", host, defaultS7Port)
	}
	return ip
}

// Dial opens the TCP socket and tunes it for S7 traffic: keep-alive,
// TCP_NODELAY, and receive/send buffers sized at 2x negotiated PDU length.
// pduLengthHint is the requested (not yet negotiated) PDU length used to
// size the buffers before negotiation completes.
func (t *Transport) Dial(ip string, pduLengthHint int) error {
	addr := withDefaultPort(ip)
	conn, err := net.DialTimeout("tcp", addr, t.timeout)
	if err != nil {
		log.WithError(err).WithField("address", addr).Debug("s7 transport: tcp dial failed")
		return fmt.Errorf("transport: tcp dial %s: %w", addr, err)
	}
	t.conn = conn
	t.address = addr

	if err := t.tuneSocket(pduLengthHint); err != nil {
		log.WithError(err).Warn("s7 transport: socket tuning failed, continuing with defaults")
	}
	log.WithField("address", addr).Debug("s7 transport: tcp connected")
	return nil
}

func (t *Transport) tuneSocket(pduLengthHint int) error {
	tc, ok := t.conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(true); err != nil {
		return err
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	if err := tc.SetKeepAlivePeriod(30 * time.Second); err != nil {
		return err
	}

	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	bufSize := pduLengthHint * 2
	if bufSize <= 0 {
		bufSize = 960
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, bufSize); e != nil {
			sockErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, bufSize); e != nil {
			sockErr = e
			return
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Close closes the socket. Idempotent.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Connected reports whether Dial succeeded and Close has not been called.
func (t *Transport) Connected() bool { return t.conn != nil }

// SendAll writes the whole buffer, applying the transport's per-operation
// timeout as a write deadline.
func (t *Transport) SendAll(b []byte) error {
	if t.conn == nil {
		return fmt.Errorf("transport: send on closed connection")
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return err
	}
	n, err := t.conn.Write(b)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return Timeout{Op: "send"}
		}
		return fmt.Errorf("transport: send: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("transport: short write: sent %d of %d bytes", n, len(b))
	}
	return nil
}

// RecvTPKTFrame reads exactly one TPKT-framed PDU: 4 header bytes, then
// len-4 more bytes per the declared length. Short reads loop until the
// frame is complete; a zero-byte read signals PeerClosed.
func (t *Transport) RecvTPKTFrame() ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("transport: recv on closed connection")
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if err := t.readFull(header); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(header[2:4]))
	if length < 4 {
		return nil, fmt.Errorf("transport: TPKT length %d shorter than header", length)
	}
	frame := make([]byte, length)
	copy(frame, header)
	if err := t.readFull(frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *Transport) readFull(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := t.conn.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if err == io.EOF {
				return PeerClosed{}
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return Timeout{Op: "recv"}
			}
			return fmt.Errorf("transport: recv: %w", err)
		}
		if n == 0 {
			return PeerClosed{}
		}
	}
	return nil
}
