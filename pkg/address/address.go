// Package address parses textual S7 memory addresses such as "DB1.DBX0.3",
// "DB20.DBD200", "MB10" or "T45" into structured descriptors.
//
// Parsing is total: every input produces either a well-formed Address or one
// of the two typed errors below. The parser never touches the network or a
// tag table.
package address

import (
	"fmt"
	"strconv"
	"strings"
)

// Area identifies the S7 memory area a descriptor refers to.
type Area uint8

const (
	AreaUnknown Area = iota
	AreaInput
	AreaOutput
	AreaMemory
	AreaDataBlock
	AreaCounter
	AreaTimer
)

func (a Area) String() string {
	switch a {
	case AreaInput:
		return "Input"
	case AreaOutput:
		return "Output"
	case AreaMemory:
		return "Memory"
	case AreaDataBlock:
		return "DataBlock"
	case AreaCounter:
		return "Counter"
	case AreaTimer:
		return "Timer"
	default:
		return "Unknown"
	}
}

// Code returns the S7 wire area code for use in a variable specification:
// Input=0x81, Output=0x82, Memory=0x83, DataBlock=0x84, Counter=0x1C,
// Timer=0x1D.
func (a Area) Code() byte {
	switch a {
	case AreaInput:
		return 0x81
	case AreaOutput:
		return 0x82
	case AreaMemory:
		return 0x83
	case AreaDataBlock:
		return 0x84
	case AreaCounter:
		return 0x1C
	case AreaTimer:
		return 0x1D
	default:
		return 0
	}
}

// Width describes the wire access width implied by the address alone (before
// any tag type/array length is applied).
type Width uint8

const (
	WidthBit Width = iota
	WidthByte
	WidthWord
	WidthDWord
)

// Bytes returns the element width in bytes; it returns 0 for WidthBit
// (callers needing bit-precision must check Width == WidthBit).
func (w Width) Bytes() int {
	switch w {
	case WidthByte:
		return 1
	case WidthWord:
		return 2
	case WidthDWord:
		return 4
	default:
		return 0
	}
}

// Address is the parsed form of a tag address string: area, DB number, byte
// offset, bit offset and wire width.
type Address struct {
	Area       Area
	DB         int // valid only when Area == AreaDataBlock
	ByteOffset int // byte offset within the area/DB; element index for Timer/Counter
	BitOffset  int // 0..7, valid only when Width == WidthBit
	Width      Width
	Raw        string
}

// BadAddress is returned when the input does not match the address grammar.
type BadAddress struct {
	Text string
}

func (e *BadAddress) Error() string {
	return fmt.Sprintf("s7 address: malformed address %q", e.Text)
}

// OutOfRange is returned when a syntactically valid address carries a
// numeric field outside its legal range (bit > 7, byte offset > 65535).
type OutOfRange struct {
	Text   string
	Reason string
}

func (e *OutOfRange) Error() string {
	return fmt.Sprintf("s7 address: %q out of range: %s", e.Text, e.Reason)
}

const maxByteOffset = 65535

// Parse parses a case-insensitive S7 address string into an Address.
func Parse(s string) (Address, error) {
	orig := s
	u := strings.ToUpper(strings.TrimSpace(s))
	if u == "" {
		return Address{}, &BadAddress{Text: orig}
	}

	if strings.HasPrefix(u, "DB") {
		return parseDB(orig, u)
	}
	return parseSimple(orig, u)
}

// parseDB handles db_addr := "DB" uint "." db_sub
func parseDB(orig, u string) (Address, error) {
	rest := u[2:]
	dotIdx := strings.IndexByte(rest, '.')
	if dotIdx < 0 {
		return Address{}, &BadAddress{Text: orig}
	}
	dbNumStr := rest[:dotIdx]
	sub := rest[dotIdx+1:]

	db, err := strconv.Atoi(dbNumStr)
	if err != nil || db < 0 {
		return Address{}, &BadAddress{Text: orig}
	}

	switch {
	case strings.HasPrefix(sub, "DBX"):
		rem := sub[3:]
		dot := strings.IndexByte(rem, '.')
		if dot < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		byteStr, bitStr := rem[:dot], rem[dot+1:]
		byteOff, err := strconv.Atoi(byteStr)
		if err != nil || byteOff < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		bit, err := strconv.Atoi(bitStr)
		if err != nil || bit < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		if byteOff > maxByteOffset {
			return Address{}, &OutOfRange{Text: orig, Reason: "byte offset exceeds 65535"}
		}
		if bit > 7 {
			return Address{}, &OutOfRange{Text: orig, Reason: "bit offset exceeds 7"}
		}
		return Address{Area: AreaDataBlock, DB: db, ByteOffset: byteOff, BitOffset: bit, Width: WidthBit, Raw: orig}, nil

	case strings.HasPrefix(sub, "DBB"):
		return dbScalar(orig, db, sub[3:], WidthByte)
	case strings.HasPrefix(sub, "DBW"):
		return dbScalar(orig, db, sub[3:], WidthWord)
	case strings.HasPrefix(sub, "DBD"):
		return dbScalar(orig, db, sub[3:], WidthDWord)
	case strings.HasPrefix(sub, "DBS"):
		// DBS: S7-STRING anchor; treated as a byte-addressed start, width
		// resolved by the tag's declared type, not the address grammar.
		return dbScalar(orig, db, sub[3:], WidthByte)
	default:
		return Address{}, &BadAddress{Text: orig}
	}
}

func dbScalar(orig string, db int, numStr string, w Width) (Address, error) {
	byteOff, err := strconv.Atoi(numStr)
	if err != nil || byteOff < 0 {
		return Address{}, &BadAddress{Text: orig}
	}
	if byteOff > maxByteOffset {
		return Address{}, &OutOfRange{Text: orig, Reason: "byte offset exceeds 65535"}
	}
	return Address{Area: AreaDataBlock, DB: db, ByteOffset: byteOff, Width: w, Raw: orig}, nil
}

// parseSimple handles simple := area_prefix ( width? uint ( "." bit )? )
func parseSimple(orig, u string) (Address, error) {
	var area Area
	var rest string

	switch {
	case strings.HasPrefix(u, "I"):
		area, rest = AreaInput, u[1:]
	case strings.HasPrefix(u, "E"):
		area, rest = AreaInput, u[1:]
	case strings.HasPrefix(u, "Q"):
		area, rest = AreaOutput, u[1:]
	case strings.HasPrefix(u, "A"):
		area, rest = AreaOutput, u[1:]
	case strings.HasPrefix(u, "O"):
		area, rest = AreaOutput, u[1:]
	case strings.HasPrefix(u, "M"):
		area, rest = AreaMemory, u[1:]
	case strings.HasPrefix(u, "T"):
		area, rest = AreaTimer, u[1:]
	case strings.HasPrefix(u, "C"):
		area, rest = AreaCounter, u[1:]
	case strings.HasPrefix(u, "Z"):
		area, rest = AreaCounter, u[1:]
	default:
		return Address{}, &BadAddress{Text: orig}
	}

	if area == AreaTimer || area == AreaCounter {
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		if idx > maxByteOffset {
			return Address{}, &OutOfRange{Text: orig, Reason: "element index exceeds 65535"}
		}
		return Address{Area: area, ByteOffset: idx, Width: WidthWord, Raw: orig}, nil
	}

	// width? uint ( "." bit )?
	width := WidthByte
	if rest == "" {
		return Address{}, &BadAddress{Text: orig}
	}
	switch rest[0] {
	case 'B':
		width, rest = WidthByte, rest[1:]
	case 'W':
		width, rest = WidthWord, rest[1:]
	case 'D':
		width, rest = WidthDWord, rest[1:]
	default:
		// No width letter: bit-addressed form, e.g. "I4.3"
		width = WidthBit
	}

	if width == WidthBit {
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		byteStr, bitStr := rest[:dot], rest[dot+1:]
		byteOff, err := strconv.Atoi(byteStr)
		if err != nil || byteOff < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		bit, err := strconv.Atoi(bitStr)
		if err != nil || bit < 0 {
			return Address{}, &BadAddress{Text: orig}
		}
		if byteOff > maxByteOffset {
			return Address{}, &OutOfRange{Text: orig, Reason: "byte offset exceeds 65535"}
		}
		if bit > 7 {
			return Address{}, &OutOfRange{Text: orig, Reason: "bit offset exceeds 7"}
		}
		return Address{Area: area, ByteOffset: byteOff, BitOffset: bit, Width: WidthBit, Raw: orig}, nil
	}

	byteOff, err := strconv.Atoi(rest)
	if err != nil || byteOff < 0 {
		return Address{}, &BadAddress{Text: orig}
	}
	if byteOff > maxByteOffset {
		return Address{}, &OutOfRange{Text: orig, Reason: "byte offset exceeds 65535"}
	}
	return Address{Area: area, ByteOffset: byteOff, Width: width, Raw: orig}, nil
}

// BitOffsetTotal returns byte_offset*8 + bit_offset, used by the frame codec
// to build the wire address field. For Timer and Counter addresses it
// returns the element number (ByteOffset) unscaled.
func (a Address) BitOffsetTotal() int {
	if a.Area == AreaTimer || a.Area == AreaCounter {
		return a.ByteOffset
	}
	return a.ByteOffset*8 + a.BitOffset
}
