package rapi

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	FlagServiceLevel     = "service_level"
	FlagDiodeCheck       = "diode_check"
	FlagVentRequired     = "vent_required"
	FlagGroundCheck      = "ground_check"
	FlagStuckRelayCheck  = "stuck_relay_check"
	FlagAutoServiceLevel = "auto_service_level"
	FlagAutoStart        = "auto_start"
	FlagSerialDebug      = "serial_debug"
	FlagLCDType          = "lcd_type"
	FlagGFISelfTest      = "gfi_self_test"
	FlagTempCheck        = "temp_check"
)

const (
	LCDMonochrome = "monochrome"
	LCDRGB        = "rgb"
)

type Polarity int

const (
	// ActiveHigh settings are true when their bit is set.
	ActiveHigh Polarity = iota
	// ActiveLow settings are true when their bit is clear. Most safety checks store a
	// "disabled" bit.
	ActiveLow
)

type FlagBit struct {
	Name     string
	Mask     uint16
	Polarity Polarity
}

// FlagTable is the fixed layout of the $GE flag word.
var FlagTable = []FlagBit{
	{Name: FlagServiceLevel, Mask: 0x0001, Polarity: ActiveHigh},
	{Name: FlagDiodeCheck, Mask: 0x0002, Polarity: ActiveLow},
	{Name: FlagVentRequired, Mask: 0x0004, Polarity: ActiveLow},
	{Name: FlagGroundCheck, Mask: 0x0008, Polarity: ActiveLow},
	{Name: FlagStuckRelayCheck, Mask: 0x0010, Polarity: ActiveLow},
	{Name: FlagAutoServiceLevel, Mask: 0x0020, Polarity: ActiveLow},
	{Name: FlagAutoStart, Mask: 0x0040, Polarity: ActiveLow},
	{Name: FlagSerialDebug, Mask: 0x0080, Polarity: ActiveHigh},
	{Name: FlagLCDType, Mask: 0x0100, Polarity: ActiveHigh},
	{Name: FlagGFISelfTest, Mask: 0x0200, Polarity: ActiveLow},
	{Name: FlagTempCheck, Mask: 0x0400, Polarity: ActiveLow},
}

func lookupFlag(name string) (FlagBit, bool) {
	for _, bit := range FlagTable {
		if bit.Name == name {
			return bit, true
		}
	}
	return FlagBit{}, false
}

func (b FlagBit) enabled(raw uint16) bool {
	set := raw&b.Mask != 0
	if b.Polarity == ActiveLow {
		return !set
	}
	return set
}

func (b FlagBit) apply(raw uint16, on bool) uint16 {
	set := on
	if b.Polarity == ActiveLow {
		set = !on
	}
	if set {
		return raw | b.Mask
	}
	return raw &^ b.Mask
}

// Flags is the raw EVSE flag word.
type Flags uint16

func ParseFlags(value string) (Flags, error) {
	raw, err := strconv.ParseUint(value, 16, 16)
	if err != nil {
		return 0, ParseError(fmt.Sprintf("failed to parse %q", value))
	}
	return Flags(raw), nil
}

// Enabled reports the logical value of the named setting. Unknown names are false.
func (f Flags) Enabled(name string) bool {
	bit, ok := lookupFlag(name)
	if !ok {
		return false
	}
	return bit.enabled(uint16(f))
}

// With returns f with the named setting forced to on.
func (f Flags) With(name string, on bool) Flags {
	bit, ok := lookupFlag(name)
	if !ok {
		return f
	}
	return Flags(bit.apply(uint16(f), on))
}

func (f Flags) Hex() string {
	return fmt.Sprintf("%04X", uint16(f))
}

// ServiceLevel returns 1 or 2.
func (f Flags) ServiceLevel() int {
	if f.Enabled(FlagServiceLevel) {
		return 2
	}
	return 1
}

func (f Flags) LCDType() string {
	if f.Enabled(FlagLCDType) {
		return LCDMonochrome
	}
	return LCDRGB
}

func (f Flags) AutoServiceLevel() bool { return f.Enabled(FlagAutoServiceLevel) }
func (f Flags) DiodeCheck() bool       { return f.Enabled(FlagDiodeCheck) }
func (f Flags) VentRequired() bool     { return f.Enabled(FlagVentRequired) }
func (f Flags) GroundCheck() bool      { return f.Enabled(FlagGroundCheck) }
func (f Flags) StuckRelayCheck() bool  { return f.Enabled(FlagStuckRelayCheck) }
func (f Flags) AutoStart() bool        { return f.Enabled(FlagAutoStart) }
func (f Flags) SerialDebug() bool      { return f.Enabled(FlagSerialDebug) }
func (f Flags) GFISelfTest() bool      { return f.Enabled(FlagGFISelfTest) }
func (f Flags) TempCheck() bool        { return f.Enabled(FlagTempCheck) }

// Settings returns every named setting, with service_level and lcd_type as their enum values.
func (f Flags) Settings() map[string]interface{} {
	settings := make(map[string]interface{}, len(FlagTable))
	for _, bit := range FlagTable {
		switch bit.Name {
		case FlagServiceLevel:
			settings[bit.Name] = f.ServiceLevel()
		case FlagLCDType:
			settings[bit.Name] = f.LCDType()
		default:
			settings[bit.Name] = bit.enabled(uint16(f))
		}
	}
	return settings
}

func (f Flags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Settings())
}
