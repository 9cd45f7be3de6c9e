package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/s7type"
)

const sampleINI = `
[connection]
cpu_type = S7-1500
ip = 192.168.0.1
rack = 0
slot = 1
poll_interval_ms = 250
watchdog_address = DB1.DBW0
watchdog_value = 4500
watchdog_interval_s = 5

[Motor1]
address = DB1.DBX0.0
type = BOOL

[Temperature]
address = DB2.DBD4
type = REAL

[History]
address = DB3.DBB0
type = BYTE
array_length = 10
do_not_poll = true
`

func TestLoadBytesConnectionSection(t *testing.T) {
	opts, decls, err := LoadBytes([]byte(sampleINI))
	assert.Nil(t, err)
	assert.Equal(t, "S7-1500", opts.CPUType)
	assert.Equal(t, "192.168.0.1", opts.IP)
	assert.EqualValues(t, 0, opts.Rack)
	assert.EqualValues(t, 1, opts.Slot)
	assert.EqualValues(t, 250, opts.PollIntervalMS)
	assert.EqualValues(t, 4500, opts.WatchdogValue)
	assert.EqualValues(t, 5, opts.WatchdogIntervalS)
	assert.Len(t, decls, 3)
}

func TestLoadBytesDefaultsApplyWhenUnset(t *testing.T) {
	opts, _, err := LoadBytes([]byte("[connection]\nip = 10.0.0.1\n"))
	assert.Nil(t, err)
	want := DefaultConnectionOptions()
	assert.Equal(t, want.PollIntervalMS, opts.PollIntervalMS)
	assert.Equal(t, want.WatchdogValue, opts.WatchdogValue)
}

func TestLoadBytesTagFields(t *testing.T) {
	_, decls, err := LoadBytes([]byte(sampleINI))
	assert.Nil(t, err)
	byName := make(map[string]TagDecl)
	for _, d := range decls {
		byName[d.Name] = d
	}

	motor, ok := byName["Motor1"]
	assert.True(t, ok)
	assert.Equal(t, s7type.KindBool, motor.Kind)
	assert.Equal(t, "DB1.DBX0.0", motor.AddressText)

	hist, ok := byName["History"]
	assert.True(t, ok)
	assert.EqualValues(t, 10, hist.ArrayLength)
	assert.True(t, hist.DoNotPoll)
}

func TestLoadBytesUnknownTypeErrors(t *testing.T) {
	_, _, err := LoadBytes([]byte("[connection]\nip=1.2.3.4\n[Bad]\naddress=DB1.DBB0\ntype=NOTATYPE\n"))
	assert.NotNil(t, err)
}

func TestLoadBytesBadArrayLength(t *testing.T) {
	_, _, err := LoadBytes([]byte("[connection]\nip=1.2.3.4\n[Bad]\naddress=DB1.DBB0\ntype=BYTE\narray_length=notanumber\n"))
	assert.NotNil(t, err)
}

func TestTypeCodeFromNameCaseInsensitive(t *testing.T) {
	k, err := TypeCodeFromName("real")
	assert.Nil(t, err)
	assert.Equal(t, s7type.KindReal, k)
	_, err = TypeCodeFromName("bogus")
	assert.NotNil(t, err)
}

func TestResolveTags(t *testing.T) {
	_, decls, err := LoadBytes([]byte(sampleINI))
	assert.Nil(t, err)
	tags, err := ResolveTags(decls)
	assert.Nil(t, err)
	assert.Len(t, tags, len(decls))
	for _, tag := range tags {
		assert.NotEmpty(t, tag.Address.Raw)
	}
}

func TestResolveTagsBadAddress(t *testing.T) {
	decls := []TagDecl{{Name: "Bad", AddressText: "not-an-address", Kind: s7type.KindBool}}
	_, err := ResolveTags(decls)
	assert.NotNil(t, err)
}
