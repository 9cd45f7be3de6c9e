package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDBForms(t *testing.T) {
	cases := []struct {
		in   string
		want Address
	}{
		{"DB1.DBX0.3", Address{Area: AreaDataBlock, DB: 1, ByteOffset: 0, BitOffset: 3, Width: WidthBit, Raw: "DB1.DBX0.3"}},
		{"DB1.DBB5", Address{Area: AreaDataBlock, DB: 1, ByteOffset: 5, Width: WidthByte, Raw: "DB1.DBB5"}},
		{"DB20.DBW200", Address{Area: AreaDataBlock, DB: 20, ByteOffset: 200, Width: WidthWord, Raw: "DB20.DBW200"}},
		{"DB20.DBD200", Address{Area: AreaDataBlock, DB: 20, ByteOffset: 200, Width: WidthDWord, Raw: "DB20.DBD200"}},
		{"db1.dbx0.3", Address{Area: AreaDataBlock, DB: 1, ByteOffset: 0, BitOffset: 3, Width: WidthBit, Raw: "db1.dbx0.3"}},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		assert.Nil(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestParseSimpleForms(t *testing.T) {
	cases := []struct {
		in   string
		want Address
	}{
		{"I4.3", Address{Area: AreaInput, ByteOffset: 4, BitOffset: 3, Width: WidthBit, Raw: "I4.3"}},
		{"E4.3", Address{Area: AreaInput, ByteOffset: 4, BitOffset: 3, Width: WidthBit, Raw: "E4.3"}},
		{"Q1.0", Address{Area: AreaOutput, ByteOffset: 1, BitOffset: 0, Width: WidthBit, Raw: "Q1.0"}},
		{"MB10", Address{Area: AreaMemory, ByteOffset: 10, Width: WidthByte, Raw: "MB10"}},
		{"MW10", Address{Area: AreaMemory, ByteOffset: 10, Width: WidthWord, Raw: "MW10"}},
		{"MD10", Address{Area: AreaMemory, ByteOffset: 10, Width: WidthDWord, Raw: "MD10"}},
		{"T45", Address{Area: AreaTimer, ByteOffset: 45, Width: WidthWord, Raw: "T45"}},
		{"C3", Address{Area: AreaCounter, ByteOffset: 3, Width: WidthWord, Raw: "C3"}},
		{"Z3", Address{Area: AreaCounter, ByteOffset: 3, Width: WidthWord, Raw: "Z3"}},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		assert.Nil(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestParseTotality(t *testing.T) {
	inputs := []string{
		"", "   ", "DB", "DB1", "DB1.", "DB1.DBX", "DB1.DBX0", "DB1.DBX0.9",
		"X1", "I", "MB", "MB-1", "T", "C", "DB-1.DBB0", "DB1.DBB999999999999999999",
		"I4.99", "DB1.DBX0.-1",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse(%q) panicked: %v", in, r)
				}
			}()
			_, _ = Parse(in)
		}()
	}
}

func TestParseOutOfRange(t *testing.T) {
	cases := []string{"DB1.DBX0.9", "I4.9", "DB1.DBB" + "99999999999"}
	for _, in := range cases {
		_, err := Parse(in)
		assert.NotNil(t, err)
	}
}

func TestBitOffsetTotal(t *testing.T) {
	a := Address{Area: AreaDataBlock, ByteOffset: 4, BitOffset: 3}
	assert.EqualValues(t, 35, a.BitOffsetTotal())
	timer := Address{Area: AreaTimer, ByteOffset: 45}
	assert.EqualValues(t, 45, timer.BitOffsetTotal())
}

func TestAreaCode(t *testing.T) {
	cases := map[Area]byte{
		AreaInput:     0x81,
		AreaOutput:    0x82,
		AreaMemory:    0x83,
		AreaDataBlock: 0x84,
		AreaCounter:   0x1C,
		AreaTimer:     0x1D,
	}
	for area, want := range cases {
		assert.Equal(t, want, area.Code())
	}
}
