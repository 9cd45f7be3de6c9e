package s7type

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBoolRoundTrip(t *testing.T) {
	for bit := 0; bit < 8; bit++ {
		enc, err := EncodeBool(0, bit, true)
		assert.Nil(t, err)
		got, err := DecodeBool([]byte{enc}, bit)
		assert.Nil(t, err)
		assert.True(t, got)
	}
}

func TestBoolOutOfRange(t *testing.T) {
	_, err := EncodeBool(0, 8, true)
	assert.NotNil(t, err)
	_, err = DecodeBool([]byte{0}, -1)
	assert.NotNil(t, err)
}

func TestWordIntRoundTrip(t *testing.T) {
	w := EncodeWord(0xBEEF)
	got, err := DecodeWord(w)
	assert.Nil(t, err)
	assert.EqualValues(t, 0xBEEF, got)

	i := EncodeInt(-1234)
	gi, err := DecodeInt(i)
	assert.Nil(t, err)
	assert.EqualValues(t, -1234, gi)
}

func TestDWordDIntRoundTrip(t *testing.T) {
	dw := EncodeDWord(0xDEADBEEF)
	got, err := DecodeDWord(dw)
	assert.Nil(t, err)
	assert.EqualValues(t, 0xDEADBEEF, got)

	di := EncodeDInt(-123456789)
	gi, err := DecodeDInt(di)
	assert.Nil(t, err)
	assert.EqualValues(t, -123456789, gi)
}

func TestRealLRealRoundTrip(t *testing.T) {
	r := EncodeReal(3.14)
	got, err := DecodeReal(r)
	assert.Nil(t, err)
	assert.Equal(t, float32(3.14), got)

	lr := EncodeLReal(2.718281828)
	glr, err := DecodeLReal(lr)
	assert.Nil(t, err)
	assert.Equal(t, 2.718281828, glr)
}

func TestWrongLength(t *testing.T) {
	_, err := DecodeWord([]byte{1})
	assert.NotNil(t, err)
	_, err = DecodeDInt([]byte{1, 2, 3})
	assert.NotNil(t, err)
}

func TestS7StringRoundTrip(t *testing.T) {
	enc, err := EncodeS7String("hello", 10)
	assert.Nil(t, err)
	assert.Len(t, enc, 12)
	got, err := DecodeS7String(enc)
	assert.Nil(t, err)
	assert.Equal(t, "hello", got)
}

func TestS7StringTruncates(t *testing.T) {
	enc, err := EncodeS7String("this is way too long", 5)
	assert.Nil(t, err)
	got, err := DecodeS7String(enc)
	assert.Nil(t, err)
	assert.Equal(t, "this ", got)
}

func TestDateTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 15, 13, 45, 30, 120*int(time.Millisecond), time.UTC)
	enc := EncodeDateTime(in)
	got, err := DecodeDateTime(enc)
	assert.Nil(t, err)
	assert.True(t, got.Equal(in))
}

func TestTimeSpanRoundTrip(t *testing.T) {
	in := 12345 * time.Millisecond
	enc := EncodeTimeSpan(in)
	got, err := DecodeTimeSpan(enc)
	assert.Nil(t, err)
	assert.Equal(t, in, got)
}

func TestCounterRoundTrip(t *testing.T) {
	enc, err := EncodeCounter(456)
	assert.Nil(t, err)
	got, err := DecodeCounter(enc)
	assert.Nil(t, err)
	assert.Equal(t, 456, got)
}

func TestCounterOutOfRange(t *testing.T) {
	_, err := EncodeCounter(1000)
	assert.NotNil(t, err)
	_, err = EncodeCounter(-1)
	assert.NotNil(t, err)
}

func TestTimerRoundTrip(t *testing.T) {
	in := Timer{Base: 2, Value: 789}
	enc, err := EncodeTimer(in)
	assert.Nil(t, err)
	got, err := DecodeTimer(enc)
	assert.Nil(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, 789*time.Second, got.Duration())
}

func TestKindFixedWidth(t *testing.T) {
	cases := map[Kind]int{
		KindBool:     1,
		KindByte:     1,
		KindWord:     2,
		KindInt:      2,
		KindDWord:    4,
		KindDInt:     4,
		KindReal:     4,
		KindLReal:    8,
		KindCounter:  2,
		KindTimer:    2,
		KindTimeSpan: 4,
		KindDateTime: 8,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.FixedWidth())
	}
	assert.Equal(t, 0, KindS7String.FixedWidth())
}
