package s7

import (
	"context"
	"fmt"
	"strings"
)

// CPUInfo is the typed decoding of SZL 0x001C (component identification) and
// SZL 0x0011 (module identification), the two system-state-list reads PLCs
// answer unconditionally and that most client libraries expose as the
// human-facing "who am I talking to" call.
//
// Every string field is ASCII, right-padded with spaces or NUL on the wire;
// decoding trims both.
type CPUInfo struct {
	ASName     string
	ModuleName string
	Copyright  string
	Serial     string
	ModuleType string
	OrderCode  string
	Version    string
}

// Lines renders the struct as the ordered, human-readable lines a caller
// satisfied with text rather than fields would print.
func (i CPUInfo) Lines() []string {
	return []string{
		fmt.Sprintf("AS name:     %s", i.ASName),
		fmt.Sprintf("Module name: %s", i.ModuleName),
		fmt.Sprintf("Copyright:   %s", i.Copyright),
		fmt.Sprintf("Serial:      %s", i.Serial),
		fmt.Sprintf("Module type: %s", i.ModuleType),
		fmt.Sprintf("Order code:  %s", i.OrderCode),
		fmt.Sprintf("Version:     %s", i.Version),
	}
}

const (
	szlComponentIdent = 0x001C
	szlModuleIdent    = 0x0011
)

// Field offsets within the SZL 0x001C payload (index 0x0001), one
// fixed-width ASCII field per record slot.
const (
	offASName     = 2
	lenASName     = 24
	offModuleName = 36
	lenModuleName = 24
	offCopyright  = 104
	lenCopyright  = 26
	offSerial     = 138
	lenSerial     = 24
	offModuleType = 172
	lenModuleType = 32
)

// Field offsets within the SZL 0x0011 payload (index 0x0000).
const (
	offOrderCode = 2
	lenOrderCode = 20
	offVersion   = 22
	lenVersion   = 3
)

func asciiField(b []byte, offset, length int) string {
	if offset < 0 || offset >= len(b) {
		return ""
	}
	end := offset + length
	if end > len(b) {
		end = len(b)
	}
	return strings.Trim(strings.TrimRight(string(b[offset:end]), "\x00 "), " ")
}

// fetchCPUInfo reads both SZL records and assembles a CPUInfo. It tolerates
// either read independently failing by leaving that half of the struct
// zero-valued rather than failing the whole call, since some CPU families
// (notably the S7-200/Logo family) only answer one of the two SZL IDs.
func fetchCPUInfo(ctx context.Context, d *Dispatcher) (CPUInfo, error) {
	var info CPUInfo
	var firstErr error

	if data, err := d.SZL(ctx, szlComponentIdent, 0x0001); err == nil {
		info.ASName = asciiField(data, offASName, lenASName)
		info.ModuleName = asciiField(data, offModuleName, lenModuleName)
		info.Copyright = asciiField(data, offCopyright, lenCopyright)
		info.Serial = asciiField(data, offSerial, lenSerial)
		info.ModuleType = asciiField(data, offModuleType, lenModuleType)
	} else {
		firstErr = err
	}

	if data, err := d.SZL(ctx, szlModuleIdent, 0x0000); err == nil {
		info.OrderCode = asciiField(data, offOrderCode, lenOrderCode)
		if offVersion+lenVersion <= len(data) {
			v := data[offVersion : offVersion+lenVersion]
			info.Version = fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
		}
	} else if firstErr == nil {
		firstErr = err
	}

	if info.ASName == "" && info.OrderCode == "" && firstErr != nil {
		return CPUInfo{}, firstErr
	}
	return info, nil
}
