package s7

import (
	"context"
	"fmt"

	"github.com/s7gopher/s7/pkg/address"
	"github.com/s7gopher/s7/pkg/frame"
)

// maxChunkRetries bounds how many times a single chunk may be retried
// before the whole chunked exchange fails (§4.6, §5).
const maxChunkRetries = 3

// chunkReserve is the protocol overhead (§4.6: "pdu_length - 32") subtracted
// from the negotiated PDU length to get the maximum bytes a single ReadVar
// exchange can carry.
const chunkReserve = 32

// writeChunkMax is the fixed upper bound on a single WriteVar chunk
// (§4.6: "writes are split into <=200-byte chunks of the same DB").
const writeChunkMax = 200

// readChunkSize returns the maximum payload bytes per ReadVar exchange for
// a given negotiated PDU length.
func readChunkSize(negotiatedPDU int) int {
	n := negotiatedPDU - chunkReserve
	if n <= 0 {
		return writeChunkMax
	}
	return n
}

// readBytes reads totalBytes consecutive bytes starting at byteOffset in
// area/db, splitting into sequential ReadVar exchanges of at most
// readChunkSize(pduLength) bytes each and concatenating the results in
// offset order (§4.6 chunking invariant, §8 scenario 6).
func readBytes(ctx context.Context, d *Dispatcher, area address.Area, db int, byteOffset, totalBytes, pduLength int) ([]byte, error) {
	if totalBytes <= 0 {
		return nil, nil
	}
	chunkSize := readChunkSize(pduLength)
	out := make([]byte, 0, totalBytes)
	for off := 0; off < totalBytes; off += chunkSize {
		n := chunkSize
		if off+n > totalBytes {
			n = totalBytes - off
		}
		spec := frame.VarSpec{
			Area:          area,
			DB:            db,
			BitOffset:     (byteOffset + off) * 8,
			TransportSize: frame.TSByte,
			Count:         n,
		}
		data, err := readChunkWithRetry(ctx, d, spec, n)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

func readChunkWithRetry(ctx context.Context, d *Dispatcher, spec frame.VarSpec, wantBytes int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxChunkRetries; attempt++ {
		items, err := d.ReadVar(ctx, []frame.VarSpec{spec})
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) != 1 {
			lastErr = newErr(WrongVarFormat, "read chunk", errWrongItemCount(1, len(items)))
			continue
		}
		item := items[0]
		if item.Err != nil {
			lastErr = newErr(ReadData, "read chunk", item.Err)
			continue
		}
		if len(item.Data) != wantBytes {
			lastErr = newErr(WrongNumberReceivedBytes, "read chunk", errWrongItemCount(wantBytes, len(item.Data)))
			continue
		}
		return item.Data, nil
	}
	return nil, lastErr
}

// writeBytes writes data to area/db starting at byteOffset, splitting into
// sequential WriteVar exchanges of at most writeChunkMax bytes each.
func writeBytes(ctx context.Context, d *Dispatcher, area address.Area, db int, byteOffset int, data []byte) error {
	for off := 0; off < len(data); off += writeChunkMax {
		end := off + writeChunkMax
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		spec := frame.VarSpec{
			Area:          area,
			DB:            db,
			BitOffset:     (byteOffset + off) * 8,
			TransportSize: frame.TSByte,
			Count:         len(chunk),
		}
		if err := writeChunkWithRetry(ctx, d, spec, chunk); err != nil {
			return err
		}
	}
	return nil
}

func writeChunkWithRetry(ctx context.Context, d *Dispatcher, spec frame.VarSpec, data []byte) error {
	item := frame.WriteItem{Spec: spec, Data: data}
	var lastErr error
	for attempt := 0; attempt < maxChunkRetries; attempt++ {
		codes, err := d.WriteVar(ctx, []frame.WriteItem{item})
		if err != nil {
			lastErr = err
			continue
		}
		if len(codes) != 1 {
			lastErr = newErr(WrongVarFormat, "write chunk", errWrongItemCount(1, len(codes)))
			continue
		}
		if codes[0] != 0xFF {
			lastErr = newErr(WriteData, "write chunk", &frame.BadReturnCode{Code: codes[0]})
			continue
		}
		return nil
	}
	return lastErr
}

func errWrongItemCount(want, got int) error {
	return fmt.Errorf("s7: expected %d items/bytes, got %d", want, got)
}
