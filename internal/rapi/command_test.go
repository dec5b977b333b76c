package rapi

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		verb     string
		args     []interface{}
		expected string
	}{
		{name: "nullary", verb: "GE", expected: "$GE"},
		{name: "set time", verb: "S1", args: []interface{}{20, 3, 14, 9, 5, 0}, expected: "$S1 20 3 14 9 5 0"},
		{name: "string args verbatim", verb: "FF", args: []interface{}{"D", "1"}, expected: "$FF D 1"},
		{name: "bool arg", verb: "FF", args: []interface{}{"G", false}, expected: "$FF G 0"},
		{name: "negative number", verb: "SA", args: []interface{}{220, -5}, expected: "$SA 220 -5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.verb, tt.args...))
		})
	}
}

func TestCommand_Immutable(t *testing.T) {
	cmd := NewCommand("SC", 16)
	args := cmd.Args()
	args[0] = "80"
	assert.Equal(t, "$SC 16", cmd.String())
}

func TestCommand_Frame(t *testing.T) {
	cmd := NewCommand("GT")
	assert.Equal(t, "$GT", cmd.Frame(ProtocolLegacy))
	assert.Equal(t, "$GT^"+Checksum("$GT"), cmd.Frame(ProtocolChecksummed))
	assert.True(t, VerifyChecksum(cmd.Frame(ProtocolChecksummed)))
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("$FF D 1^2A")
	require.NoError(t, err)
	assert.Equal(t, "FF", cmd.Verb())
	assert.Equal(t, []string{"D", "1"}, cmd.Args())

	_, err = ParseCommand("GE")
	assert.Error(t, err)
	_, err = ParseCommand("$")
	assert.Error(t, err)
}

func TestParseProtocolVersion(t *testing.T) {
	v, err := ParseProtocolVersion("checksum")
	require.NoError(t, err)
	assert.Equal(t, ProtocolChecksummed, v)
	v, err = ParseProtocolVersion("")
	require.NoError(t, err)
	assert.Equal(t, ProtocolLegacy, v)
	_, err = ParseProtocolVersion("v9")
	assert.Error(t, err)
}

var hex2 = regexp.MustCompile(`^[0-9A-F]{2}$`)

func TestChecksum(t *testing.T) {
	known := map[string]string{
		"$OK 18 0 25 23 54 27": "1B",
		"$OK 20 0229":          "2B",
		"$OK 10 80":            "29",
		"$OK 0":                "30",
		"$OK 650 650":          "20",
		"$OK":                  "20",
	}
	for body, expected := range known {
		assert.Equal(t, expected, Checksum(body), body)
	}
	for _, s := range []string{"a", "$GT", "$S1 20 3 14 9 5 0", "zzzzzzzzzzzz", "~"} {
		first := Checksum(s)
		assert.Regexp(t, hex2, first)
		assert.Equal(t, first, Checksum(s))
	}
}

func TestVerifyChecksum(t *testing.T) {
	assert.True(t, VerifyChecksum("$OK 18 0 25 23 54 27^1B"))
	assert.True(t, VerifyChecksum("$OK 18 0 25 23 54 27^1b"))
	assert.False(t, VerifyChecksum("$OK 18 0 25 23 54 27^1C"))
	assert.False(t, VerifyChecksum("$OK 18 0 25 23 54 27"))
	assert.Equal(t, "$OK^20", AppendChecksum("$OK"))
}
