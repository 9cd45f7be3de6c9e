package s7type

import (
	"fmt"
	"time"
)

// DecodeWordArray decodes n consecutive big-endian Word elements with no
// padding between them.
func DecodeWordArray(b []byte, n int) ([]uint16, error) {
	if len(b) != 2*n {
		return nil, &ErrWrongLength{Kind: KindWord, Expected: 2 * n, Got: len(b)}
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeWord(b[i*2 : i*2+2])
		out[i] = v
	}
	return out, nil
}

func EncodeWordArray(vs []uint16) []byte {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		out = append(out, EncodeWord(v)...)
	}
	return out
}

func DecodeIntArray(b []byte, n int) ([]int16, error) {
	if len(b) != 2*n {
		return nil, &ErrWrongLength{Kind: KindInt, Expected: 2 * n, Got: len(b)}
	}
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeInt(b[i*2 : i*2+2])
		out[i] = v
	}
	return out, nil
}

func EncodeIntArray(vs []int16) []byte {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		out = append(out, EncodeInt(v)...)
	}
	return out
}

func DecodeDWordArray(b []byte, n int) ([]uint32, error) {
	if len(b) != 4*n {
		return nil, &ErrWrongLength{Kind: KindDWord, Expected: 4 * n, Got: len(b)}
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeDWord(b[i*4 : i*4+4])
		out[i] = v
	}
	return out, nil
}

func EncodeDWordArray(vs []uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, EncodeDWord(v)...)
	}
	return out
}

func DecodeDIntArray(b []byte, n int) ([]int32, error) {
	if len(b) != 4*n {
		return nil, &ErrWrongLength{Kind: KindDInt, Expected: 4 * n, Got: len(b)}
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeDInt(b[i*4 : i*4+4])
		out[i] = v
	}
	return out, nil
}

func EncodeDIntArray(vs []int32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, EncodeDInt(v)...)
	}
	return out
}

func DecodeRealArray(b []byte, n int) ([]float32, error) {
	if len(b) != 4*n {
		return nil, &ErrWrongLength{Kind: KindReal, Expected: 4 * n, Got: len(b)}
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeReal(b[i*4 : i*4+4])
		out[i] = v
	}
	return out, nil
}

func EncodeRealArray(vs []float32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, EncodeReal(v)...)
	}
	return out
}

func DecodeByteArray(b []byte, n int) ([]byte, error) {
	if len(b) != n {
		return nil, &ErrWrongLength{Kind: KindByte, Expected: n, Got: len(b)}
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func EncodeByteArray(vs []byte) []byte {
	out := make([]byte, len(vs))
	copy(out, vs)
	return out
}

func DecodeLRealArray(b []byte, n int) ([]float64, error) {
	if len(b) != 8*n {
		return nil, &ErrWrongLength{Kind: KindLReal, Expected: 8 * n, Got: len(b)}
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeLReal(b[i*8 : i*8+8])
		out[i] = v
	}
	return out, nil
}

func EncodeLRealArray(vs []float64) []byte {
	out := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		out = append(out, EncodeLReal(v)...)
	}
	return out
}

func DecodeDateTimeArray(b []byte, n int) ([]time.Time, error) {
	if len(b) != 8*n {
		return nil, &ErrWrongLength{Kind: KindDateTime, Expected: 8 * n, Got: len(b)}
	}
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		v, err := DecodeDateTime(b[i*8 : i*8+8])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func EncodeDateTimeArray(vs []time.Time) []byte {
	out := make([]byte, 0, 8*len(vs))
	for _, v := range vs {
		out = append(out, EncodeDateTime(v)...)
	}
	return out
}

func DecodeTimeSpanArray(b []byte, n int) ([]time.Duration, error) {
	if len(b) != 4*n {
		return nil, &ErrWrongLength{Kind: KindTimeSpan, Expected: 4 * n, Got: len(b)}
	}
	out := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		v, _ := DecodeTimeSpan(b[i*4 : i*4+4])
		out[i] = v
	}
	return out, nil
}

func EncodeTimeSpanArray(vs []time.Duration) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, EncodeTimeSpan(v)...)
	}
	return out
}

func DecodeCounterArray(b []byte, n int) ([]int, error) {
	if len(b) != 2*n {
		return nil, &ErrWrongLength{Kind: KindCounter, Expected: 2 * n, Got: len(b)}
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := DecodeCounter(b[i*2 : i*2+2])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func EncodeCounterArray(vs []int) ([]byte, error) {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		enc, err := EncodeCounter(v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func DecodeTimerArray(b []byte, n int) ([]Timer, error) {
	if len(b) != 2*n {
		return nil, &ErrWrongLength{Kind: KindTimer, Expected: 2 * n, Got: len(b)}
	}
	out := make([]Timer, n)
	for i := 0; i < n; i++ {
		v, err := DecodeTimer(b[i*2 : i*2+2])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func EncodeTimerArray(vs []Timer) ([]byte, error) {
	out := make([]byte, 0, 2*len(vs))
	for _, v := range vs {
		enc, err := EncodeTimer(v)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// DecodeBoolArray reads n elements, one bit per element, each element
// occupying bit `bit` of its own byte at consecutive offsets.
func DecodeBoolArray(b []byte, n int, bit int) ([]bool, error) {
	if len(b) != n {
		return nil, &ErrWrongLength{Kind: KindBool, Expected: n, Got: len(b)}
	}
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		v, err := DecodeBool(b[i:i+1], bit)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeBoolArray is the inverse of DecodeBoolArray: one byte per element
// with only bit `bit` set, matching the one-bit-per-byte wire layout this
// client uses for bit arrays.
func EncodeBoolArray(vs []bool, bit int) ([]byte, error) {
	out := make([]byte, len(vs))
	for i, v := range vs {
		b, err := EncodeBool(0, bit, v)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// ElementWidth returns the fixed per-element wire width for array encoding
// of the given kind, erroring for kinds with no fixed width (String).
func ElementWidth(k Kind) (int, error) {
	w := k.FixedWidth()
	if w == 0 && k != KindBool {
		return 0, fmt.Errorf("s7type: kind %s has no fixed array element width", k)
	}
	if k == KindBool {
		return 1, nil
	}
	return w, nil
}
