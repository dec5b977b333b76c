package openevse

import (
	"fmt"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

type State uint8

const (
	StateUnknown             State = 0
	StateNotConnected        State = 1
	StateConnected           State = 2
	StateCharging            State = 3
	StateVentRequired        State = 4
	StateDiodeCheckFailed    State = 5
	StateGFCIFault           State = 6
	StateNoGround            State = 7
	StateStuckRelay          State = 8
	StateGFCISelfTestFailure State = 9
	StateOverTemperature     State = 10
	StateSleeping            State = 254
	StateDisabled            State = 255
)

var stateNames = map[State]string{
	StateUnknown:             "unknown",
	StateNotConnected:        "not connected",
	StateConnected:           "connected",
	StateCharging:            "charging",
	StateVentRequired:        "vent required",
	StateDiodeCheckFailed:    "diode check failed",
	StateGFCIFault:           "gfci fault",
	StateNoGround:            "no ground",
	StateStuckRelay:          "stuck relay",
	StateGFCISelfTestFailure: "gfci self-test failure",
	StateOverTemperature:     "over temperature",
	StateSleeping:            "sleeping",
	StateDisabled:            "disabled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state %d", uint8(s))
}

func (s State) IsConnected() bool {
	return s == StateConnected || s == StateCharging
}

func (s State) IsReady() bool {
	return s == StateUnknown || s == StateNotConnected
}

func (s State) IsCharging() bool {
	return s == StateCharging
}

func (s State) IsError() bool {
	return s >= StateVentRequired && s <= StateOverTemperature
}

func (s State) IsEnabled() bool {
	return s <= StateCharging
}

func (s State) IsSleeping() bool {
	return s == StateSleeping
}

func (s State) IsDisabled() bool {
	return s == StateDisabled
}

type Action string

const (
	ActionEnable  Action = "enable"
	ActionDisable Action = "disable"
	ActionSleep   Action = "sleep"
)

var actionVerbs = map[Action]string{
	ActionDisable: "FD",
	ActionEnable:  "FE",
	ActionSleep:   "FS",
}

// Satisfied reports whether s already is the state action would put the EVSE in.
func (a Action) Satisfied(s State) bool {
	switch a {
	case ActionDisable:
		return s == StateDisabled
	case ActionSleep:
		return s == StateSleeping
	case ActionEnable:
		return s < StateSleeping
	}
	return false
}

// TimerWindow is the delay charge timer. Start and Stop are "HH:MM" or "--:--" when unset.
type TimerWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	Stop    string `json:"stop"`
}

const NoTime = "--:--"

var DisabledTimer = TimerWindow{Enabled: false, Start: NoTime, Stop: NoTime}

// SafetyCheck names a toggleable safety test and the sub-codes used to change it.
type SafetyCheck struct {
	Flag       string
	SubCode    string
	LegacyVerb string
}

var (
	DiodeCheck      = SafetyCheck{Flag: rapi.FlagDiodeCheck, SubCode: "D", LegacyVerb: "SD"}
	GFISelfTest     = SafetyCheck{Flag: rapi.FlagGFISelfTest, SubCode: "F", LegacyVerb: "SF"}
	GroundCheck     = SafetyCheck{Flag: rapi.FlagGroundCheck, SubCode: "G", LegacyVerb: "SG"}
	StuckRelayCheck = SafetyCheck{Flag: rapi.FlagStuckRelayCheck, SubCode: "R", LegacyVerb: "SR"}
	TempCheck       = SafetyCheck{Flag: rapi.FlagTempCheck, SubCode: "T"}
	VentRequired    = SafetyCheck{Flag: rapi.FlagVentRequired, SubCode: "V", LegacyVerb: "SV"}
)

var SafetyChecks = []SafetyCheck{DiodeCheck, GFISelfTest, GroundCheck, StuckRelayCheck, TempCheck, VentRequired}
