package s7

import (
	"context"
	"fmt"
	"time"

	"github.com/s7gopher/s7/pkg/frame"
	"github.com/s7gopher/s7/pkg/s7type"
	"github.com/s7gopher/s7/pkg/tagtable"
)

// varSpecCount returns the Count field (§4.1) to place in a tag's variable
// specification. For S7String it is the tag's whole wire width in bytes
// (the string is read/written as one opaque blob); for every other kind it
// is the declared element count (§8 scenario 3: a DBW4 scalar read carries
// Count=1, the element count, not the 2-byte wire width).
func varSpecCount(tag *tagtable.Tag) int {
	if tag.Kind == s7type.KindS7String {
		return tag.WidthBytes()
	}
	n := tag.ArrayLength
	if n < 1 {
		n = 1
	}
	return n
}

func tagVarSpec(tag *tagtable.Tag) frame.VarSpec {
	return frame.VarSpec{
		Area:          tag.Address.Area,
		DB:            tag.Address.DB,
		BitOffset:     tag.Address.BitOffsetTotal(),
		TransportSize: frame.TSByte,
		Count:         varSpecCount(tag),
	}
}

// readTag reads one tag's current value from the PLC, chunking the
// exchange when its wire width exceeds the negotiated PDU's single-exchange
// capacity.
func readTag(ctx context.Context, d *Dispatcher, tag *tagtable.Tag, pduLength int) (any, error) {
	width := tag.WidthBytes()
	if width <= 0 {
		return nil, newErr(WrongVarFormat, "read", fmt.Errorf("tag %q has zero wire width", tag.Name))
	}

	var data []byte
	if width <= readChunkSize(pduLength) {
		items, err := d.ReadVar(ctx, []frame.VarSpec{tagVarSpec(tag)})
		if err != nil {
			return nil, err
		}
		if len(items) != 1 {
			return nil, newErr(WrongVarFormat, "read", errWrongItemCount(1, len(items)))
		}
		if items[0].Err != nil {
			return nil, newErr(ReadData, "read", items[0].Err)
		}
		data = items[0].Data
	} else {
		b, err := readBytes(ctx, d, tag.Address.Area, tag.Address.DB, tag.Address.ByteOffset, width, pduLength)
		if err != nil {
			return nil, err
		}
		data = b
	}

	v, err := decodeTagValue(tag, data)
	if err != nil {
		return nil, newErr(WrongVarFormat, "decode", err)
	}
	return v, nil
}

// writeTag encodes v per the tag's declared Kind/ArrayLength and writes it,
// chunking into <=200-byte WriteVar exchanges when necessary.
func writeTag(ctx context.Context, d *Dispatcher, tag *tagtable.Tag, v any) error {
	data, err := encodeTagValue(tag, v)
	if err != nil {
		return newErr(WrongVarFormat, "encode", err)
	}
	if len(data) <= writeChunkMax {
		item := frame.WriteItem{Spec: tagVarSpec(tag), Data: data}
		codes, err := d.WriteVar(ctx, []frame.WriteItem{item})
		if err != nil {
			return err
		}
		if len(codes) != 1 {
			return newErr(WrongVarFormat, "write", errWrongItemCount(1, len(codes)))
		}
		if codes[0] != 0xFF {
			return newErr(WriteData, "write", &frame.BadReturnCode{Code: codes[0]})
		}
		return nil
	}
	return writeBytes(ctx, d, tag.Address.Area, tag.Address.DB, tag.Address.ByteOffset, data)
}

func scalarLen(tag *tagtable.Tag) int {
	n := tag.ArrayLength
	if n < 1 {
		n = 1
	}
	return n
}

// decodeTagValue dispatches to the s7type decoder matching tag.Kind,
// returning a scalar Go value when ArrayLength==1 and a slice otherwise
// (String is always scalar: its ArrayLength is its declared max length, not
// an element count).
func decodeTagValue(tag *tagtable.Tag, data []byte) (any, error) {
	n := scalarLen(tag)
	bit := tag.Address.BitOffset

	switch tag.Kind {
	case s7type.KindBool:
		if n == 1 {
			return s7type.DecodeBool(data, bit)
		}
		return s7type.DecodeBoolArray(data, n, bit)
	case s7type.KindByte:
		if n == 1 {
			return s7type.DecodeByte(data)
		}
		return s7type.DecodeByteArray(data, n)
	case s7type.KindWord:
		if n == 1 {
			return s7type.DecodeWord(data)
		}
		return s7type.DecodeWordArray(data, n)
	case s7type.KindInt:
		if n == 1 {
			return s7type.DecodeInt(data)
		}
		return s7type.DecodeIntArray(data, n)
	case s7type.KindDWord:
		if n == 1 {
			return s7type.DecodeDWord(data)
		}
		return s7type.DecodeDWordArray(data, n)
	case s7type.KindDInt:
		if n == 1 {
			return s7type.DecodeDInt(data)
		}
		return s7type.DecodeDIntArray(data, n)
	case s7type.KindReal:
		if n == 1 {
			return s7type.DecodeReal(data)
		}
		return s7type.DecodeRealArray(data, n)
	case s7type.KindLReal:
		if n == 1 {
			return s7type.DecodeLReal(data)
		}
		return s7type.DecodeLRealArray(data, n)
	case s7type.KindS7String:
		return s7type.DecodeS7String(data)
	case s7type.KindDateTime:
		if n == 1 {
			return s7type.DecodeDateTime(data)
		}
		return s7type.DecodeDateTimeArray(data, n)
	case s7type.KindTimeSpan:
		if n == 1 {
			return s7type.DecodeTimeSpan(data)
		}
		return s7type.DecodeTimeSpanArray(data, n)
	case s7type.KindCounter:
		if n == 1 {
			return s7type.DecodeCounter(data)
		}
		return s7type.DecodeCounterArray(data, n)
	case s7type.KindTimer:
		if n == 1 {
			return s7type.DecodeTimer(data)
		}
		return s7type.DecodeTimerArray(data, n)
	default:
		return nil, fmt.Errorf("s7: unsupported kind %s", tag.Kind)
	}
}

func encodeTagValue(tag *tagtable.Tag, v any) ([]byte, error) {
	n := scalarLen(tag)
	bit := tag.Address.BitOffset

	switch tag.Kind {
	case s7type.KindBool:
		if n == 1 {
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects bool, got %T", tag.Name, v)
			}
			enc, err := s7type.EncodeBool(0, bit, b)
			return []byte{enc}, err
		}
		bs, ok := v.([]bool)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []bool, got %T", tag.Name, v)
		}
		return s7type.EncodeBoolArray(bs, bit)
	case s7type.KindByte:
		if n == 1 {
			b, ok := v.(byte)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects byte, got %T", tag.Name, v)
			}
			return s7type.EncodeByte(b), nil
		}
		bs, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []byte, got %T", tag.Name, v)
		}
		return s7type.EncodeByteArray(bs), nil
	case s7type.KindWord:
		if n == 1 {
			w, ok := v.(uint16)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects uint16, got %T", tag.Name, v)
			}
			return s7type.EncodeWord(w), nil
		}
		ws, ok := v.([]uint16)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []uint16, got %T", tag.Name, v)
		}
		return s7type.EncodeWordArray(ws), nil
	case s7type.KindInt:
		if n == 1 {
			i, ok := v.(int16)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects int16, got %T", tag.Name, v)
			}
			return s7type.EncodeInt(i), nil
		}
		is, ok := v.([]int16)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []int16, got %T", tag.Name, v)
		}
		return s7type.EncodeIntArray(is), nil
	case s7type.KindDWord:
		if n == 1 {
			w, ok := v.(uint32)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects uint32, got %T", tag.Name, v)
			}
			return s7type.EncodeDWord(w), nil
		}
		ws, ok := v.([]uint32)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []uint32, got %T", tag.Name, v)
		}
		return s7type.EncodeDWordArray(ws), nil
	case s7type.KindDInt:
		if n == 1 {
			i, ok := v.(int32)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects int32, got %T", tag.Name, v)
			}
			return s7type.EncodeDInt(i), nil
		}
		is, ok := v.([]int32)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []int32, got %T", tag.Name, v)
		}
		return s7type.EncodeDIntArray(is), nil
	case s7type.KindReal:
		if n == 1 {
			f, ok := v.(float32)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects float32, got %T", tag.Name, v)
			}
			return s7type.EncodeReal(f), nil
		}
		fs, ok := v.([]float32)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []float32, got %T", tag.Name, v)
		}
		return s7type.EncodeRealArray(fs), nil
	case s7type.KindLReal:
		if n == 1 {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects float64, got %T", tag.Name, v)
			}
			return s7type.EncodeLReal(f), nil
		}
		fs, ok := v.([]float64)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []float64, got %T", tag.Name, v)
		}
		return s7type.EncodeLRealArray(fs), nil
	case s7type.KindS7String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects string, got %T", tag.Name, v)
		}
		return s7type.EncodeS7String(s, tag.ArrayLength)
	case s7type.KindDateTime:
		if n == 1 {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects time.Time, got %T", tag.Name, v)
			}
			return s7type.EncodeDateTime(t), nil
		}
		ts, ok := v.([]time.Time)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []time.Time, got %T", tag.Name, v)
		}
		return s7type.EncodeDateTimeArray(ts), nil
	case s7type.KindTimeSpan:
		if n == 1 {
			d, ok := v.(time.Duration)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects time.Duration, got %T", tag.Name, v)
			}
			return s7type.EncodeTimeSpan(d), nil
		}
		ds, ok := v.([]time.Duration)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []time.Duration, got %T", tag.Name, v)
		}
		return s7type.EncodeTimeSpanArray(ds), nil
	case s7type.KindCounter:
		if n == 1 {
			c, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects int, got %T", tag.Name, v)
			}
			return s7type.EncodeCounter(c)
		}
		cs, ok := v.([]int)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []int, got %T", tag.Name, v)
		}
		return s7type.EncodeCounterArray(cs)
	case s7type.KindTimer:
		if n == 1 {
			t, ok := v.(s7type.Timer)
			if !ok {
				return nil, fmt.Errorf("s7: tag %q expects s7type.Timer, got %T", tag.Name, v)
			}
			return s7type.EncodeTimer(t)
		}
		ts, ok := v.([]s7type.Timer)
		if !ok {
			return nil, fmt.Errorf("s7: tag %q expects []s7type.Timer, got %T", tag.Name, v)
		}
		return s7type.EncodeTimerArray(ts)
	default:
		return nil, fmt.Errorf("s7: unsupported kind %s", tag.Kind)
	}
}

