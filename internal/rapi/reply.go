package rapi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var framePattern = regexp.MustCompile(`\$([^\^]*)(\^..)?`)

const (
	StatusOK = "OK"
	StatusNK = "NK"
)

// CommandResult is the JSON envelope returned by the gateway's /r endpoint.
type CommandResult struct {
	CMD string `json:"cmd"`
	RET string `json:"ret"`
}

// Reply is a decoded device response.
type Reply struct {
	Status   string
	Args     []string
	Checksum string
}

// Parse splits ret into status and argument tokens. The checksum trailer is not verified.
func Parse(ret string) (Reply, error) {
	match := framePattern.FindStringSubmatchIndex(ret)
	if match == nil {
		return Reply{}, newError(KindUnexpectedResponse, fmt.Sprintf("could not parse %q", ret), nil)
	}
	body := ret[match[2]:match[3]]
	tokens := strings.Split(body, " ")
	reply := Reply{Status: tokens[0]}
	if match[4] >= 0 {
		reply.Checksum = ret[match[4]+1 : match[5]]
	}
	if reply.Status != StatusOK {
		return reply, newError(KindOperationFailed, "", nil)
	}
	reply.Args = tokens[1:]
	return reply, nil
}

// ParseVerified parses ret and checks its checksum trailer. The checksummed dialect
// requires the trailer, the legacy dialect only rejects one that is present and wrong.
func ParseVerified(ret string, version ProtocolVersion) (Reply, error) {
	match := framePattern.FindStringSubmatchIndex(ret)
	if match == nil {
		return Parse(ret)
	}
	framed := ret[match[0]:match[1]]
	hasTrailer := match[4] >= 0
	if hasTrailer && !VerifyChecksum(framed) {
		return Reply{}, newError(KindUnexpectedResponse, fmt.Sprintf("bad trailer on %q", ret), ErrChecksumMismatch)
	}
	if !hasTrailer && version == ProtocolChecksummed {
		return Reply{}, newError(KindUnexpectedResponse, fmt.Sprintf("missing trailer on %q", ret), ErrChecksumMismatch)
	}
	return Parse(ret)
}

func (r Reply) need(n int) error {
	if len(r.Args) < n {
		return ParseError(fmt.Sprintf("only received %d arguments", len(r.Args)))
	}
	return nil
}

// Int decodes argument i as a base 10 integer.
func (r Reply) Int(i int) (int, error) {
	if err := r.need(i + 1); err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(r.Args[i])
	if err != nil {
		return 0, ParseError(fmt.Sprintf("could not parse %q", strings.Join(r.Args, " ")))
	}
	return value, nil
}

// Ints decodes the first n arguments as base 10 integers.
func (r Reply) Ints(n int) ([]int, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	values := make([]int, n)
	for i := 0; i < n; i++ {
		value, err := r.Int(i)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// Hex16 decodes argument i as a hexadecimal 16 bit value.
func (r Reply) Hex16(i int) (uint16, error) {
	if err := r.need(i + 1); err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(r.Args[i], 16, 16)
	if err != nil {
		return 0, ParseError(fmt.Sprintf("failed to parse %q", r.Args[i]))
	}
	return uint16(value), nil
}
