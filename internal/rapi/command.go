package rapi

import (
	"fmt"
	"strconv"
	"strings"
)

type ProtocolVersion int

const (
	// ProtocolLegacy sends commands without a checksum trailer.
	ProtocolLegacy ProtocolVersion = iota
	// ProtocolChecksummed appends ^HH to every command and requires it on replies.
	ProtocolChecksummed
)

func ParseProtocolVersion(value string) (ProtocolVersion, error) {
	switch strings.ToLower(value) {
	case "", "legacy":
		return ProtocolLegacy, nil
	case "checksum", "checksummed":
		return ProtocolChecksummed, nil
	default:
		return ProtocolLegacy, fmt.Errorf("unknown rapi protocol version %q", value)
	}
}

func (v ProtocolVersion) String() string {
	if v == ProtocolChecksummed {
		return "checksummed"
	}
	return "legacy"
}

// Command is a single RAPI verb with its ordered arguments.
type Command struct {
	verb string
	args []string
}

func NewCommand(verb string, args ...interface{}) Command {
	cmd := Command{
		verb: verb,
		args: make([]string, 0, len(args)),
	}
	for _, arg := range args {
		cmd.args = append(cmd.args, formatArg(arg))
	}
	return cmd
}

// Encode builds the wire string for verb and args without a checksum.
func Encode(verb string, args ...interface{}) string {
	return NewCommand(verb, args...).String()
}

func formatArg(arg interface{}) string {
	switch value := arg.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint8:
		return strconv.FormatUint(uint64(value), 10)
	case uint16:
		return strconv.FormatUint(uint64(value), 10)
	case uint32:
		return strconv.FormatUint(uint64(value), 10)
	case bool:
		if value {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(value)
	}
}

func (c Command) Verb() string {
	return c.verb
}

func (c Command) Args() []string {
	args := make([]string, len(c.args))
	copy(args, c.args)
	return args
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString("$")
	b.WriteString(c.verb)
	for _, arg := range c.args {
		b.WriteString(" ")
		b.WriteString(arg)
	}
	return b.String()
}

// Frame returns the command as it goes on the wire for the given protocol version.
func (c Command) Frame(version ProtocolVersion) string {
	if version == ProtocolChecksummed {
		return AppendChecksum(c.String())
	}
	return c.String()
}

// ParseCommand splits a wire string back into a command. Any checksum trailer is dropped.
func ParseCommand(wire string) (Command, error) {
	match := framePattern.FindStringSubmatch(wire)
	if match == nil {
		return Command{}, fmt.Errorf("invalid rapi command %q", wire)
	}
	tokens := strings.Fields(match[1])
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("empty rapi command %q", wire)
	}
	return Command{verb: tokens[0], args: tokens[1:]}, nil
}
