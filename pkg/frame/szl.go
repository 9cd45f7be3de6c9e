package frame

import (
	"encoding/binary"
	"fmt"
)

// SZL (System-Zustandsliste) queries are carried in S7 Userdata PDUs rather
// than Job/AckData PDUs. A query runs as an initial request naming the SZL
// ID and index, followed by zero or more continuation
// requests that pull further chunks until the server's more-follows flag
// clears.

const (
	udParamHead   = 0x00
	udParamHead2  = 0x01
	udParamHead3  = 0x12
	udParamLength = 0x04

	udTypeRequest  = 0x11
	udTypeResponse = 0x12

	udSubfuncReadSZL = 0x01
)

// buildUserdataParams encodes the 8-byte Userdata parameter block shared by
// SZL requests and responses.
func buildUserdataParams(kind byte, seq byte) []byte {
	return []byte{udParamHead, udParamHead2, udParamHead3, udParamLength, kind, udSubfuncReadSZL, seq, 0x00}
}

// BuildSZLRequest builds the initial SZL1 request PDU naming the SZL ID and
// starting index. seq is the userdata sequence byte the server will echo
// back on every response frame of this exchange.
func BuildSZLRequest(pduRef uint16, seq byte, szlID uint16, szlIndex uint16) []byte {
	params := buildUserdataParams(udTypeRequest, seq)
	data := make([]byte, 8)
	data[0] = 0x00 // return code, unused on request
	data[1] = 0x00 // reserved
	binary.BigEndian.PutUint16(data[2:4], 4)
	binary.BigEndian.PutUint16(data[4:6], szlID)
	binary.BigEndian.PutUint16(data[6:8], szlIndex)

	header := []byte{
		s7ProtocolID, RosctrUserdata,
		0x00, 0x00,
		byte(pduRef >> 8), byte(pduRef),
		0x00, byte(len(params)),
		0x00, byte(len(data)),
	}
	out := append(header, params...)
	out = append(out, data...)
	return out
}

// BuildSZLContinuationRequest builds a follow-up request pulling the next
// chunk of a multi-frame SZL response, echoing the sequence byte the server
// supplied in its previous response frame.
func BuildSZLContinuationRequest(pduRef uint16, seqIn byte) []byte {
	params := buildUserdataParams(udTypeRequest, seqIn)
	data := []byte{0x00, 0x00, 0x00, 0x00}

	header := []byte{
		s7ProtocolID, RosctrUserdata,
		0x00, 0x00,
		byte(pduRef >> 8), byte(pduRef),
		0x00, byte(len(params)),
		0x00, byte(len(data)),
	}
	out := append(header, params...)
	out = append(out, data...)
	return out
}

// SZLChunk is one decoded SZL response frame.
type SZLChunk struct {
	SeqIn       byte
	MoreFollows bool
	Payload     []byte
}

const (
	szlFirstHeaderLen = 41 - 7 // pdu-relative payload start on the first response frame
	szlContHeaderLen  = 37 - 7 // pdu-relative payload start on continuation frames
)

// ParseSZLResponseFrame parses one SZL response PDU, first being true for
// the SZL1 initial frame and false for SZL2 continuations. The payload
// offset differs between the two; the per-chunk length field is read from
// pdu[24:26] in both.
func ParseSZLResponseFrame(pdu []byte, first bool) (SZLChunk, error) {
	headerLen := szlContHeaderLen
	if first {
		headerLen = szlFirstHeaderLen
	}
	if len(pdu) < headerLen {
		return SZLChunk{}, &ShortFrame{Context: "SZL response header", Need: headerLen, Got: len(pdu)}
	}
	if pdu[0] != s7ProtocolID {
		return SZLChunk{}, &MalformedFrame{Reason: fmt.Sprintf("bad S7 protocol id 0x%02X", pdu[0])}
	}
	if pdu[1] != RosctrUserdata {
		return SZLChunk{}, &MalformedFrame{Reason: fmt.Sprintf("unexpected ROSCTR 0x%02X for SZL response", pdu[1])}
	}
	seqIn := pdu[16] // sequence byte: index 6 of the 8-byte userdata parameter block pdu[10:18], as placed by buildUserdataParams
	returnCode := pdu[18]
	if returnCode != dataItemSuccess {
		return SZLChunk{}, &BadReturnCode{Code: returnCode}
	}
	moreFollows := pdu[19] != 0
	chunkLen := int(binary.BigEndian.Uint16(pdu[24:26]))

	if headerLen+chunkLen > len(pdu) {
		return SZLChunk{}, &WrongNumberReceivedBytes{Expected: headerLen + chunkLen, Got: len(pdu)}
	}
	payload := make([]byte, chunkLen)
	copy(payload, pdu[headerLen:headerLen+chunkLen])

	return SZLChunk{SeqIn: seqIn, MoreFollows: moreFollows, Payload: payload}, nil
}

// AccumulateSZL concatenates the payload of a running SZL read with the next
// chunk. The source this protocol was distilled from doubles the running
// length (`lengthOfDataRead += lengthOfDataRead`) instead of adding the new
// chunk's length; this implementation adds the chunk length, which is the
// only accumulation that terminates correctly across an arbitrary number of
// chunks.
func AccumulateSZL(soFar []byte, chunk SZLChunk) []byte {
	return append(soFar, chunk.Payload...)
}
