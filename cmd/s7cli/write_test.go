package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s7gopher/s7/pkg/s7type"
)

func TestParseScalarSupportedKinds(t *testing.T) {
	cases := []struct {
		kind s7type.Kind
		in   string
		want any
	}{
		{s7type.KindBool, "true", true},
		{s7type.KindByte, "200", byte(200)},
		{s7type.KindWord, "4500", uint16(4500)},
		{s7type.KindInt, "-100", int16(-100)},
		{s7type.KindDWord, "70000", uint32(70000)},
		{s7type.KindDInt, "-70000", int32(-70000)},
		{s7type.KindReal, "3.5", float32(3.5)},
		{s7type.KindLReal, "3.14159", float64(3.14159)},
		{s7type.KindS7String, "hello", "hello"},
		{s7type.KindCounter, "12", 12},
	}
	for _, c := range cases {
		got, err := parseScalar(c.kind, c.in)
		assert.Nil(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestParseScalarUnsupportedKind(t *testing.T) {
	_, err := parseScalar(s7type.KindTimer, "1")
	assert.NotNil(t, err)
}

func TestParseScalarBadInput(t *testing.T) {
	_, err := parseScalar(s7type.KindWord, "not-a-number")
	assert.NotNil(t, err)
}
