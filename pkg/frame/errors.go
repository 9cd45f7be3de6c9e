package frame

import "fmt"

// MalformedFrame signals a structurally invalid frame: bad magic, bad
// RoSCTR, bad PDU type.
type MalformedFrame struct {
	Reason string
}

func (e *MalformedFrame) Error() string { return "frame: malformed: " + e.Reason }

// ShortFrame signals a frame shorter than required to decode a field.
type ShortFrame struct {
	Context string
	Need    int
	Got     int
}

func (e *ShortFrame) Error() string {
	return fmt.Sprintf("frame: short frame in %s: need %d bytes, got %d", e.Context, e.Need, e.Got)
}

// WrongNumberReceivedBytes signals that the declared TPKT/PDU length
// disagrees with the number of bytes actually available.
type WrongNumberReceivedBytes struct {
	Expected int
	Got      int
}

func (e *WrongNumberReceivedBytes) Error() string {
	return fmt.Sprintf("frame: wrong number of received bytes: expected %d, got %d", e.Expected, e.Got)
}

// UnsupportedFunction signals a response carrying a function code the codec
// does not implement.
type UnsupportedFunction struct {
	Code byte
}

func (e *UnsupportedFunction) Error() string {
	return fmt.Sprintf("frame: unsupported function code 0x%02X", e.Code)
}

// BadReturnCode signals a non-OK per-item return code, or a non-zero S7
// header error class/code. Code 0xFF means OK; any other PLC-returned code
// reaches here as the raw byte.
type BadReturnCode struct {
	Code   byte
	Detail string
}

func (e *BadReturnCode) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("frame: bad return code 0x%02X: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("frame: bad return code 0x%02X", e.Code)
}
