// Package config loads connection options and tag declarations from an INI
// file, in the same per-section style the wider S7/CANopen tooling uses for
// EDS object dictionaries: one section per entry, keys read with
// gopkg.in/ini.v1.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/s7gopher/s7/pkg/address"
	"github.com/s7gopher/s7/pkg/s7type"
	"github.com/s7gopher/s7/pkg/tagtable"
)

// ConnectionOptions is the closed set of recognised connection options.
type ConnectionOptions struct {
	CPUType           string
	IP                string
	Rack              int
	Slot              int
	PollIntervalMS    int
	WatchdogAddress   string
	WatchdogValue     uint16
	WatchdogIntervalS int
}

// DefaultConnectionOptions returns the documented defaults; callers
// overwrite fields loaded from the [connection] section.
func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		PollIntervalMS:    100,
		WatchdogValue:     4500,
		WatchdogIntervalS: 10,
	}
}

// TagDecl is one declared tag as read from the file, before resolution into
// a tagtable.Tag (address parsing happens in ResolveTags so callers don't need
// the address package just to read a file).
type TagDecl struct {
	Name        string
	AddressText string
	Kind        s7type.Kind
	ArrayLength int
	DoNotPoll   bool
}

var kindByName = map[string]s7type.Kind{
	"BOOL":     s7type.KindBool,
	"BYTE":     s7type.KindByte,
	"WORD":     s7type.KindWord,
	"INT":      s7type.KindInt,
	"DWORD":    s7type.KindDWord,
	"DINT":     s7type.KindDInt,
	"REAL":     s7type.KindReal,
	"LREAL":    s7type.KindLReal,
	"S7STRING": s7type.KindS7String,
	"DATETIME": s7type.KindDateTime,
	"TIMESPAN": s7type.KindTimeSpan,
	"COUNTER":  s7type.KindCounter,
	"TIMER":    s7type.KindTimer,
}

// TypeCodeFromName resolves a tag-file "type" string (case-insensitive)
// into a s7type.Kind.
func TypeCodeFromName(name string) (s7type.Kind, error) {
	k, ok := kindByName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("config: unknown tag type %q", name)
	}
	return k, nil
}

// Load parses an INI-format configuration file holding one [connection]
// section and any number of tag sections, each named after the tag.
func Load(path string) (ConnectionOptions, []TagDecl, error) {
	f, err := ini.Load(path)
	if err != nil {
		return ConnectionOptions{}, nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return loadFromFile(f)
}

// LoadBytes parses raw INI-format bytes, for callers embedding a config
// rather than reading one from disk.
func LoadBytes(data []byte) (ConnectionOptions, []TagDecl, error) {
	f, err := ini.Load(data)
	if err != nil {
		return ConnectionOptions{}, nil, fmt.Errorf("config: load: %w", err)
	}
	return loadFromFile(f)
}

func loadFromFile(f *ini.File) (ConnectionOptions, []TagDecl, error) {
	opts := DefaultConnectionOptions()

	if conn, err := f.GetSection("connection"); err == nil {
		opts.CPUType = conn.Key("cpu_type").String()
		opts.IP = conn.Key("ip").String()
		opts.Rack, _ = conn.Key("rack").Int()
		opts.Slot, _ = conn.Key("slot").Int()
		if v, err := conn.Key("poll_interval_ms").Int(); err == nil && v > 0 {
			opts.PollIntervalMS = v
		}
		opts.WatchdogAddress = conn.Key("watchdog_address").String()
		if v, err := conn.Key("watchdog_value").Uint(); err == nil {
			opts.WatchdogValue = uint16(v)
		}
		if v, err := conn.Key("watchdog_interval_s").Int(); err == nil && v > 0 {
			opts.WatchdogIntervalS = v
		}
	}

	var decls []TagDecl
	for _, section := range f.Sections() {
		name := section.Name()
		if name == "DEFAULT" || name == "connection" {
			continue
		}
		addrText := section.Key("address").String()
		if addrText == "" {
			continue
		}
		kind, err := TypeCodeFromName(section.Key("type").String())
		if err != nil {
			return ConnectionOptions{}, nil, fmt.Errorf("config: tag %q: %w", name, err)
		}
		arrayLen := 1
		if v := section.Key("array_length").String(); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return ConnectionOptions{}, nil, fmt.Errorf("config: tag %q: bad array_length %q", name, v)
			}
			arrayLen = n
		}
		doNotPoll, _ := section.Key("do_not_poll").Bool()

		decls = append(decls, TagDecl{
			Name:        name,
			AddressText: addrText,
			Kind:        kind,
			ArrayLength: arrayLen,
			DoNotPoll:   doNotPoll,
		})
	}
	return opts, decls, nil
}

// ResolveTags parses each declaration's address text and returns ready
// *tagtable.Tag values, or the first address error encountered.
func ResolveTags(decls []TagDecl) ([]*tagtable.Tag, error) {
	out := make([]*tagtable.Tag, 0, len(decls))
	for _, d := range decls {
		addr, err := address.Parse(d.AddressText)
		if err != nil {
			return nil, fmt.Errorf("config: tag %q: %w", d.Name, err)
		}
		out = append(out, &tagtable.Tag{
			Name:        d.Name,
			Address:     addr,
			Kind:        d.Kind,
			ArrayLength: d.ArrayLength,
			DoNotPoll:   d.DoNotPoll,
		})
	}
	return out, nil
}
