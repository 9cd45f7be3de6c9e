// Package frame builds and parses the TPKT+COTP+S7 protocol data units
// exchanged with an S7 PLC. Every function here is pure: builders return
// owned byte slices, parsers take read-only slices. No function in this
// package performs I/O.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/s7gopher/s7/pkg/address"
)

// Wire constants for the TPKT/COTP/S7 envelope.
const (
	TPKTVersion    = 0x03
	TPKTHeaderSize = 4

	cotpCR = 0xE0 // Connection Request
	cotpCC = 0xD0 // Connection Confirm
	cotpDT = 0xF0 // Data Transfer, EOT bit set in the TPDU-number byte

	s7ProtocolID = 0x32

	RosctrJob      = 0x01
	RosctrAck      = 0x02
	RosctrAckData  = 0x03
	RosctrUserdata = 0x07

	FuncSetupComm = 0xF0
	FuncReadVar   = 0x04
	FuncWriteVar  = 0x05

	dataItemSuccess = 0xFF
)

// Profile names the TSAP pairing used during the COTP connection request.
// A client tries profiles in order until one is accepted.
type Profile uint8

const (
	ProfilePG Profile = iota
	ProfileOP
	ProfilePGAlt
	ProfileS7_200
	ProfileLogo
)

// TSAPPair returns the (source, destination-prefix) TSAP bytes for a
// profile. The destination TSAP's low byte is rack*32+slot except for the
// fixed S7-200/LOGO profiles, which ignore rack/slot.
func (p Profile) TSAPPair(rack, slot int) (src [2]byte, dstHi byte, dstLoFixed *byte) {
	switch p {
	case ProfilePG:
		return [2]byte{0x01, 0x00}, 0x03, nil
	case ProfileOP:
		return [2]byte{0x02, 0x00}, 0x03, nil
	case ProfilePGAlt:
		return [2]byte{0x10, 0x00}, 0x03, nil
	case ProfileS7_200:
		fixed := byte(0x00)
		return [2]byte{0x10, 0x00}, 0x10, &fixed
	case ProfileLogo:
		fixed := byte(0x02)
		return [2]byte{0x01, 0x00}, 0x01, &fixed
	default:
		return [2]byte{0x01, 0x00}, 0x03, nil
	}
}

// BuildConnectionRequest builds the 22-byte COTP Connection Request TPKT
// frame for the given profile, rack and slot.
//
// dstLo is computed as rack*32+slot, matching real S7 client libraries. An
// example worked through with rack=0/slot=1 in notes elsewhere names 0x00
// for that byte rather than 0x01; that example is inconsistent with the
// formula and the formula is what ships here.
func BuildConnectionRequest(profile Profile, rack, slot int) []byte {
	src, dstHi, dstLoFixed := profile.TSAPPair(rack, slot)

	var dstLo byte
	if dstLoFixed != nil {
		dstLo = *dstLoFixed
	} else {
		dstLo = byte(rack*32 + slot)
	}

	cotp := make([]byte, 0, 18)
	cotp = append(cotp,
		0x11,       // length byte: 17 bytes follow
		cotpCR,     // PDU type: Connection Request
		0x00, 0x00, // destination reference
		0x00, 0x2E, // source reference
		0x00, // class 0, no options
	)
	cotp = append(cotp, 0xC1, 0x02, src[0], src[1]) // source TSAP
	cotp = append(cotp, 0xC2, 0x02, dstHi, dstLo)   // destination TSAP
	cotp = append(cotp, 0xC0, 0x01, 0x09)           // TPDU size = 0x09 (512 bytes)

	return wrapTPKT(cotp)
}

// ParseConnectionConfirm validates a COTP Connection Confirm response,
// returning an error if the PDU type doesn't match CC.
func ParseConnectionConfirm(tpkt []byte) error {
	cotp, err := unwrapTPKT(tpkt)
	if err != nil {
		return err
	}
	if len(cotp) < 2 {
		return &ShortFrame{Context: "COTP CC", Need: 2, Got: len(cotp)}
	}
	if cotp[1] != cotpCC {
		return &MalformedFrame{Reason: fmt.Sprintf("expected COTP CC (0x%02X), got 0x%02X", cotpCC, cotp[1])}
	}
	return nil
}

// cotpDTHeader is the fixed 3-byte COTP Data Transfer header used to wrap
// every S7 PDU after the connection is established: [length=2][DT][EOT|tpdu-nr=0].
var cotpDTHeader = []byte{0x02, cotpDT, 0x80}

func wrapTPKT(payload []byte) []byte {
	total := len(payload) + TPKTHeaderSize
	out := make([]byte, 0, total)
	out = append(out, TPKTVersion, 0x00, byte(total>>8), byte(total))
	out = append(out, payload...)
	return out
}

// WrapDT wraps an S7 PDU in a COTP Data Transfer header and TPKT framing,
// ready to be written to the socket.
func WrapDT(s7PDU []byte) []byte {
	payload := make([]byte, 0, len(cotpDTHeader)+len(s7PDU))
	payload = append(payload, cotpDTHeader...)
	payload = append(payload, s7PDU...)
	return wrapTPKT(payload)
}

// unwrapTPKT strips the TPKT header, validating magic and length, and
// returns the COTP payload.
func unwrapTPKT(b []byte) ([]byte, error) {
	if len(b) < TPKTHeaderSize {
		return nil, &ShortFrame{Context: "TPKT header", Need: TPKTHeaderSize, Got: len(b)}
	}
	if b[0] != TPKTVersion {
		return nil, &MalformedFrame{Reason: fmt.Sprintf("bad TPKT version 0x%02X", b[0])}
	}
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if length != len(b) {
		return nil, &WrongNumberReceivedBytes{Expected: length, Got: len(b)}
	}
	return b[TPKTHeaderSize:], nil
}

// UnwrapDT strips TPKT framing and the COTP DT header, returning the S7 PDU.
func UnwrapDT(tpkt []byte) ([]byte, error) {
	cotp, err := unwrapTPKT(tpkt)
	if err != nil {
		return nil, err
	}
	if len(cotp) < 3 {
		return nil, &ShortFrame{Context: "COTP DT header", Need: 3, Got: len(cotp)}
	}
	if cotp[1] != cotpDT {
		return nil, &MalformedFrame{Reason: fmt.Sprintf("expected COTP DT (0x%02X), got 0x%02X", cotpDT, cotp[1])}
	}
	return cotp[3:], nil
}

// --- Setup Communication ---

// BuildSetupCommRequest builds an 18-byte S7 Communication Setup request
// asking for the given requested PDU length.
func BuildSetupCommRequest(pduRef uint16, requestedPDULength uint16) []byte {
	header := []byte{
		s7ProtocolID, RosctrJob,
		0x00, 0x00, // reserved
		byte(pduRef >> 8), byte(pduRef),
		0x00, 0x08, // parameter length = 8
		0x00, 0x00, // data length = 0
	}
	params := []byte{
		FuncSetupComm,
		0x00,       // reserved
		0x00, 0x01, // max AMQ calling = 1
		0x00, 0x01, // max AMQ called = 1
		byte(requestedPDULength >> 8), byte(requestedPDULength),
	}
	return append(header, params...)
}

// SetupCommResult is the decoded response to a Setup Communication request.
type SetupCommResult struct {
	NegotiatedPDULength uint16
}

// ParseSetupCommResponse parses an S7 PDU (post TPKT/COTP unwrap) for a
// Setup Communication acknowledgement. The PDU must be >= 20 bytes (27 for
// the full frame); negotiated PDU length sits at PDU bytes 18..19 (full-frame
// bytes 25..26).
func ParseSetupCommResponse(pdu []byte) (SetupCommResult, error) {
	if len(pdu) < 20 {
		return SetupCommResult{}, &ShortFrame{Context: "SetupComm response", Need: 20, Got: len(pdu)}
	}
	if pdu[0] != s7ProtocolID {
		return SetupCommResult{}, &MalformedFrame{Reason: fmt.Sprintf("bad S7 protocol id 0x%02X", pdu[0])}
	}
	if pdu[1] != RosctrAckData {
		return SetupCommResult{}, &MalformedFrame{Reason: fmt.Sprintf("unexpected ROSCTR 0x%02X for SetupComm response", pdu[1])}
	}
	if errClass, errCode := pdu[10], pdu[11]; errClass != 0 || errCode != 0 {
		return SetupCommResult{}, &BadReturnCode{Code: errCode, Detail: fmt.Sprintf("S7 header error class 0x%02X code 0x%02X", errClass, errCode)}
	}
	if pdu[12] != FuncSetupComm {
		return SetupCommResult{}, &MalformedFrame{Reason: fmt.Sprintf("unexpected function 0x%02X in SetupComm response", pdu[12])}
	}
	negotiated := binary.BigEndian.Uint16(pdu[18:20])
	return SetupCommResult{NegotiatedPDULength: negotiated}, nil
}

// --- ReadVar / WriteVar variable specifications ---

// VarSpec describes one item to read or write: the resolved (area, db,
// bit-address, element-count) tuple plus the per-element wire transport
// size used to compute count/length fields.
type VarSpec struct {
	Area          address.Area
	DB            int
	BitOffset     int // byte_offset*8 + bit_offset, or element index for T/C
	TransportSize byte
	Count         int // number of transport-size elements
}

// Request-side transport size codes, placed at byte 3 of a variable
// specification. Everywhere except Timer/Counter addressing this is the
// fixed byte-addressing code TSByte; Timer/Counter reuse the slot to carry
// their own area code instead.
const (
	TSBit  = 0x01
	TSByte = 0x02
)

// s7AnySyntaxID is the constant S7ANY addressing syntax marker at byte 2 of
// a variable specification.
const s7AnySyntaxID = 0x10

// Data-item transport size codes used in ReadVar/WriteVar payload items
// (distinct from the request-side codes above): BadReturnCode aside, a
// response item's length field is in bits unless the transport size is
// DataTransportOctetString, in which case it is already in bytes.
const (
	DataTransportBit           = 0x03
	DataTransportByteWordDWord = 0x04
	DataTransportOctetString   = 0x09
)

// buildVarSpec encodes one 12-byte variable specification:
// [12][0A][10][transport_size] [ushort count] [ushort db] [area] [overflow] [ushort bit_offset]
func buildVarSpec(v VarSpec) []byte {
	areaCode := v.Area.Code()
	transportSize := v.TransportSize
	if v.Area == address.AreaTimer || v.Area == address.AreaCounter {
		transportSize = areaCode
	}
	addr := v.BitOffset
	overflow := byte((addr >> 16) & 0xFF)
	low16 := uint16(addr & 0xFFFF)

	out := make([]byte, 12)
	out[0] = 0x12
	out[1] = 0x0A
	out[2] = s7AnySyntaxID
	out[3] = transportSize
	binary.BigEndian.PutUint16(out[4:6], uint16(v.Count))
	binary.BigEndian.PutUint16(out[6:8], uint16(v.DB))
	out[8] = areaCode
	out[9] = overflow
	binary.BigEndian.PutUint16(out[10:12], low16)
	return out
}

// BuildReadVarRequest builds a ReadVar request PDU for one or more variable
// specifications.
func BuildReadVarRequest(pduRef uint16, items []VarSpec) []byte {
	paramLen := 2 + 12*len(items)
	header := []byte{
		s7ProtocolID, RosctrJob,
		0x00, 0x00,
		byte(pduRef >> 8), byte(pduRef),
		byte(paramLen >> 8), byte(paramLen),
		0x00, 0x00,
	}
	params := make([]byte, 0, paramLen)
	params = append(params, FuncReadVar, byte(len(items)))
	for _, it := range items {
		params = append(params, buildVarSpec(it)...)
	}
	return append(header, params...)
}

// ReadItem is one decoded ReadVar response item.
type ReadItem struct {
	ReturnCode byte
	Data       []byte
	Err        error
}

// ParseReadVarResponse parses a ReadVar response PDU, returning one ReadItem
// per expected item. A zero pad byte follows an odd-length payload iff more
// items follow.
func ParseReadVarResponse(pdu []byte, expectedItems int) ([]ReadItem, error) {
	if len(pdu) < 12 {
		return nil, &ShortFrame{Context: "ReadVar response header", Need: 12, Got: len(pdu)}
	}
	if pdu[0] != s7ProtocolID {
		return nil, &MalformedFrame{Reason: fmt.Sprintf("bad S7 protocol id 0x%02X", pdu[0])}
	}
	if pdu[1] != RosctrAckData {
		if errClass, errCode := headerErrClassCode(pdu); errClass != 0 || errCode != 0 {
			return nil, &BadReturnCode{Code: errCode, Detail: fmt.Sprintf("S7 header error class 0x%02X code 0x%02X", errClass, errCode)}
		}
		return nil, &MalformedFrame{Reason: fmt.Sprintf("unexpected ROSCTR 0x%02X", pdu[1])}
	}
	if errClass, errCode := pdu[10], pdu[11]; errClass != 0 || errCode != 0 {
		return nil, &BadReturnCode{Code: errCode, Detail: fmt.Sprintf("S7 header error class 0x%02X code 0x%02X", errClass, errCode)}
	}

	paramLen := int(binary.BigEndian.Uint16(pdu[6:8]))
	dataStart := 12 + paramLen
	if dataStart > len(pdu) {
		return nil, &WrongNumberReceivedBytes{Expected: dataStart, Got: len(pdu)}
	}

	items := make([]ReadItem, 0, expectedItems)
	pos := dataStart
	for i := 0; i < expectedItems; i++ {
		if pos >= len(pdu) {
			items = append(items, ReadItem{Err: &ShortFrame{Context: "ReadVar item", Need: 1, Got: 0}})
			continue
		}
		returnCode := pdu[pos]
		if returnCode != dataItemSuccess {
			items = append(items, ReadItem{ReturnCode: returnCode, Err: &BadReturnCode{Code: returnCode}})
			pos++
			continue
		}
		if pos+4 > len(pdu) {
			items = append(items, ReadItem{Err: &ShortFrame{Context: "ReadVar item header", Need: 4, Got: len(pdu) - pos}})
			break
		}
		transportSize := pdu[pos+1]
		bitLen := int(binary.BigEndian.Uint16(pdu[pos+2 : pos+4]))
		byteLen := bitLenToByteLen(transportSize, bitLen)
		pos += 4
		if pos+byteLen > len(pdu) {
			items = append(items, ReadItem{Err: &ShortFrame{Context: "ReadVar item payload", Need: byteLen, Got: len(pdu) - pos}})
			break
		}
		data := make([]byte, byteLen)
		copy(data, pdu[pos:pos+byteLen])
		pos += byteLen
		// A zero pad byte follows an odd-length payload iff more items follow.
		if byteLen%2 == 1 && i < expectedItems-1 {
			pos++
		}
		items = append(items, ReadItem{ReturnCode: returnCode, Data: data})
	}
	return items, nil
}

func bitLenToByteLen(transportSize byte, bitLen int) int {
	if transportSize == DataTransportOctetString {
		return bitLen
	}
	return (bitLen + 7) / 8
}

func headerErrClassCode(pdu []byte) (byte, byte) {
	if len(pdu) < 12 {
		return 0, 0
	}
	return pdu[10], pdu[11]
}

// --- WriteVar ---

// WriteItem is one item to write: the variable spec plus its payload.
// DataTransportSize selects the data-item transport size code (one of the
// DataTransport* constants); it defaults to DataTransportByteWordDWord when
// zero, except for bit writes which must set DataTransportBit explicitly.
type WriteItem struct {
	Spec              VarSpec
	Data              []byte
	DataTransportSize byte
}

// BuildWriteVarRequest builds a WriteVar request PDU for one or more items.
func BuildWriteVarRequest(pduRef uint16, items []WriteItem) []byte {
	paramLen := 2
	for range items {
		paramLen += 12
	}
	dataLen := 0
	dataSection := make([]byte, 0, 64)
	for i, it := range items {
		dts := it.DataTransportSize
		if dts == 0 {
			dts = DataTransportByteWordDWord
		}
		bitLen := len(it.Data) * 8
		if dts == DataTransportBit {
			bitLen = 1
		} else if dts == DataTransportOctetString {
			bitLen = len(it.Data)
		}
		itemHeader := []byte{0x00, dts, byte(bitLen >> 8), byte(bitLen)}
		dataSection = append(dataSection, itemHeader...)
		dataSection = append(dataSection, it.Data...)
		itemLen := len(itemHeader) + len(it.Data)
		if len(it.Data)%2 == 1 && i < len(items)-1 {
			dataSection = append(dataSection, 0x00)
			itemLen++
		}
		dataLen += itemLen
	}

	out := make([]byte, 0, 10+paramLen+dataLen)
	out = append(out, s7ProtocolID, RosctrJob, 0x00, 0x00)
	out = append(out, byte(pduRef>>8), byte(pduRef))
	out = append(out, byte(paramLen>>8), byte(paramLen))
	out = append(out, byte(dataLen>>8), byte(dataLen))
	out = append(out, FuncWriteVar, byte(len(items)))
	for _, it := range items {
		out = append(out, buildVarSpec(it.Spec)...)
	}
	out = append(out, dataSection...)
	return out
}

// ParseWriteVarResponse parses a WriteVar response, returning one return
// code per item.
func ParseWriteVarResponse(pdu []byte, expectedItems int) ([]byte, error) {
	if len(pdu) < 12 {
		return nil, &ShortFrame{Context: "WriteVar response header", Need: 12, Got: len(pdu)}
	}
	if pdu[0] != s7ProtocolID {
		return nil, &MalformedFrame{Reason: fmt.Sprintf("bad S7 protocol id 0x%02X", pdu[0])}
	}
	if errClass, errCode := pdu[10], pdu[11]; errClass != 0 || errCode != 0 {
		return nil, &BadReturnCode{Code: errCode, Detail: fmt.Sprintf("S7 header error class 0x%02X code 0x%02X", errClass, errCode)}
	}
	paramLen := int(binary.BigEndian.Uint16(pdu[6:8]))
	dataStart := 12 + paramLen
	if dataStart+expectedItems > len(pdu) {
		return nil, &WrongNumberReceivedBytes{Expected: dataStart + expectedItems, Got: len(pdu)}
	}
	codes := make([]byte, expectedItems)
	copy(codes, pdu[dataStart:dataStart+expectedItems])
	return codes, nil
}

// NextPDURef returns the next PDU reference, wrapping at 0xFFFF back to 1
// (0 is reserved/unused on the wire in this implementation).
func NextPDURef(current uint16) uint16 {
	if current >= 0xFFFF {
		return 1
	}
	return current + 1
}
