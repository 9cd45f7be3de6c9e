package s7type

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWordArrayRoundTrip(t *testing.T) {
	in := []uint16{1, 2, 0xFFFF, 0}
	enc := EncodeWordArray(in)
	got, err := DecodeWordArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestByteArrayRoundTrip(t *testing.T) {
	in := []byte{1, 2, 3, 255}
	enc := EncodeByteArray(in)
	got, err := DecodeByteArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestRealArrayRoundTrip(t *testing.T) {
	in := []float32{1.5, -2.25, 0}
	enc := EncodeRealArray(in)
	got, err := DecodeRealArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestLRealArrayRoundTrip(t *testing.T) {
	in := []float64{1.123456, -9.87654}
	enc := EncodeLRealArray(in)
	got, err := DecodeLRealArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestDateTimeArrayRoundTrip(t *testing.T) {
	in := []time.Time{
		time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 59, 990*int(time.Millisecond), time.UTC),
	}
	enc := EncodeDateTimeArray(in)
	got, err := DecodeDateTimeArray(enc, len(in))
	assert.Nil(t, err)
	for i := range in {
		assert.True(t, got[i].Equal(in[i]))
	}
}

func TestTimeSpanArrayRoundTrip(t *testing.T) {
	in := []time.Duration{0, 5 * time.Second, -100 * time.Millisecond}
	enc := EncodeTimeSpanArray(in)
	got, err := DecodeTimeSpanArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestCounterArrayRoundTrip(t *testing.T) {
	in := []int{0, 42, 999}
	enc, err := EncodeCounterArray(in)
	assert.Nil(t, err)
	got, err := DecodeCounterArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestCounterArrayRejectsOutOfRange(t *testing.T) {
	_, err := EncodeCounterArray([]int{1000})
	assert.NotNil(t, err)
}

func TestTimerArrayRoundTrip(t *testing.T) {
	in := []Timer{{Base: 0, Value: 10}, {Base: 3, Value: 500}}
	enc, err := EncodeTimerArray(in)
	assert.Nil(t, err)
	got, err := DecodeTimerArray(enc, len(in))
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestBoolArrayRoundTrip(t *testing.T) {
	in := []bool{true, false, true, true, false}
	enc, err := EncodeBoolArray(in, 3)
	assert.Nil(t, err)
	assert.Len(t, enc, len(in)) // one byte per element
	got, err := DecodeBoolArray(enc, len(in), 3)
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestWrongLengthArray(t *testing.T) {
	_, err := DecodeWordArray([]byte{1, 2, 3}, 2)
	assert.NotNil(t, err)
	_, err = DecodeBoolArray([]byte{1, 2}, 3, 0)
	assert.NotNil(t, err)
}

func TestElementWidth(t *testing.T) {
	cases := map[Kind]int{
		KindBool:  1,
		KindWord:  2,
		KindDInt:  4,
		KindLReal: 8,
	}
	for k, want := range cases {
		got, err := ElementWidth(k)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ElementWidth(KindS7String)
	assert.NotNil(t, err)
}
