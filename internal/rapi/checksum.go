package rapi

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Checksum XORs every UTF-16 code unit of s and renders the low byte as two upper hex digits.
func Checksum(s string) string {
	var check uint16
	for _, unit := range utf16.Encode([]rune(s)) {
		check ^= unit
	}
	return fmt.Sprintf("%02X", check&0xFF)
}

// AppendChecksum frames s as s^HH.
func AppendChecksum(s string) string {
	return s + "^" + Checksum(s)
}

// VerifyChecksum reports whether framed carries a trailer matching its body.
func VerifyChecksum(framed string) bool {
	idx := strings.LastIndex(framed, "^")
	if idx < 0 || len(framed)-idx != 3 {
		return false
	}
	return strings.EqualFold(framed[idx+1:], Checksum(framed[:idx]))
}
