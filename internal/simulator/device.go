package simulator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

const (
	minCurrent      = 6
	maxCurrentL1    = 16
	minCurrentL2    = 10
	maxCurrentL2    = 80
	firmwareVersion = "4.8.0"
	protocolVersion = "3.0.1"
	stateSleeping   = 254
	stateDisabled   = 255
)

var commandPattern = regexp.MustCompile(`\$([^\^]*)(\^..)?`)

type Options struct {
	// Protocol selects whether replies carry a checksum trailer.
	Protocol rapi.ProtocolVersion
	// LegacyFlagCommands makes the device reject $FF and accept the single verb toggles.
	LegacyFlagCommands bool
	// NoRTC makes $GT report the missing clock pattern.
	NoRTC bool
	// VehicleState is the J1772 state reported while enabled. Defaults to not connected.
	VehicleState uint8
	// Delay is added before every reply.
	Delay time.Duration
	Now   func() time.Time
}

type Status struct {
	State       uint8  `json:"state"`
	Pilot       int    `json:"pilot"`
	Elapsed     int    `json:"elapsed"`
	Flags       string `json:"flags"`
	CommSent    int    `json:"comm_sent"`
	CommSuccess int    `json:"comm_success"`
}

type Config struct {
	Firmware         string     `json:"firmware"`
	Protocol         string     `json:"protocol"`
	Service          int        `json:"service"`
	Scale            int        `json:"scale"`
	Offset           int        `json:"offset"`
	TimeLimit        int        `json:"time_limit"`
	ChargeLimit      int        `json:"charge_limit"`
	AmbientThreshold int        `json:"ambient_threshold"`
	IRThreshold      int        `json:"ir_threshold"`
	Settings         rapi.Flags `json:"settings"`
}

// Device is an in-memory EVSE controller answering RAPI commands.
type Device struct {
	mux     sync.Mutex
	options Options

	flags            rapi.Flags
	state            uint8
	vehicle          uint8
	pilot            int
	timeLimit        int
	chargeLimit      int
	timer            [4]int
	scale            int
	offset           int
	ambientThreshold int
	irThreshold      int
	clockOffset      time.Duration
	started          time.Time
	commandEcho      bool

	commSent    int
	commSuccess int
	received    []string
	active      int
	maxActive   int
}

func New(options Options) *Device {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.VehicleState == 0 {
		options.VehicleState = 1
	}
	return &Device{
		options: options,
		// Level 2, manual service level, every safety check enabled.
		flags:            rapi.Flags(0x0001).With(rapi.FlagAutoServiceLevel, false),
		state:            options.VehicleState,
		vehicle:          options.VehicleState,
		pilot:            32,
		scale:            220,
		ambientThreshold: 650,
		irThreshold:      650,
		started:          options.Now(),
	}
}

// Handle answers one wire command and returns the reply line.
func (d *Device) Handle(wire string) string {
	d.enter()
	defer d.exit()
	if d.options.Delay > 0 {
		time.Sleep(d.options.Delay)
	}

	d.mux.Lock()
	defer d.mux.Unlock()
	d.commSent++
	d.received = append(d.received, wire)

	body, ok := d.decode(wire)
	if !ok {
		return d.frame("$NK")
	}
	ret, ok := d.execute(strings.Fields(body))
	if !ok {
		return d.frame("$NK")
	}
	d.commSuccess++
	return d.frame(ret)
}

func (d *Device) decode(wire string) (string, bool) {
	match := commandPattern.FindStringSubmatch(wire)
	if match == nil {
		return "", false
	}
	if match[2] != "" && !rapi.VerifyChecksum(match[0]) {
		return "", false
	}
	return match[1], true
}

func (d *Device) frame(ret string) string {
	if d.options.Protocol == rapi.ProtocolChecksummed {
		return rapi.AppendChecksum(ret)
	}
	return ret
}

func (d *Device) enter() {
	d.mux.Lock()
	d.active++
	if d.active > d.maxActive {
		d.maxActive = d.active
	}
	d.mux.Unlock()
}

func (d *Device) exit() {
	d.mux.Lock()
	d.active--
	d.mux.Unlock()
}

func okReply(values ...interface{}) string {
	parts := []string{"$OK"}
	for _, value := range values {
		parts = append(parts, fmt.Sprint(value))
	}
	return strings.Join(parts, " ")
}

func ints(args []string, n int) ([]int, bool) {
	if len(args) < n {
		return nil, false
	}
	values := make([]int, n)
	for i := range values {
		value, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, false
		}
		values[i] = value
	}
	return values, true
}

func (d *Device) execute(request []string) (string, bool) {
	if len(request) == 0 {
		return "", false
	}
	verb, args := request[0], request[1:]
	switch verb {
	case "GT":
		if d.options.NoRTC {
			return okReply(165, 165, 165, 165, 165, 85), true
		}
		now := d.options.Now().Add(d.clockOffset)
		return okReply(now.Year()%100, int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second()), true
	case "S1":
		values, valid := ints(args, 6)
		if !valid {
			return "", false
		}
		now := d.options.Now()
		set := time.Date(2000+values[0], time.Month(values[1]), values[2], values[3], values[4], values[5], 0, now.Location())
		d.clockOffset = set.Sub(now)
		return okReply(), true
	case "GE":
		return okReply(d.pilot, d.flags.Hex()), true
	case "GC":
		low, high := d.capacityRange()
		return okReply(low, high), true
	case "SC":
		values, valid := ints(args, 1)
		if !valid {
			return "", false
		}
		d.pilot = d.clamp(values[0])
		return okReply(d.pilot), true
	case "SL":
		if len(args) < 1 {
			return "", false
		}
		switch args[0] {
		case "A":
			d.flags = d.flags.With(rapi.FlagAutoServiceLevel, true)
		case "1", "2":
			d.flags = d.flags.With(rapi.FlagAutoServiceLevel, false).With(rapi.FlagServiceLevel, args[0] == "2")
		default:
			return "", false
		}
		d.pilot = d.clamp(d.pilot)
		return okReply(), true
	case "G3":
		return okReply(d.timeLimit), true
	case "S3":
		values, valid := ints(args, 1)
		if !valid || values[0] < 0 {
			return "", false
		}
		d.timeLimit = values[0]
		return okReply(), true
	case "GH":
		return okReply(d.chargeLimit), true
	case "SH":
		values, valid := ints(args, 1)
		if !valid || values[0] < 0 {
			return "", false
		}
		d.chargeLimit = values[0]
		return okReply(), true
	case "GD":
		return okReply(d.timer[0], d.timer[1], d.timer[2], d.timer[3]), true
	case "ST":
		values, valid := ints(args, 4)
		if !valid {
			return "", false
		}
		copy(d.timer[:], values)
		return okReply(), true
	case "GA":
		return okReply(d.scale, d.offset), true
	case "SA":
		values, valid := ints(args, 2)
		if !valid {
			return "", false
		}
		d.scale, d.offset = values[0], values[1]
		return okReply(), true
	case "GO":
		return okReply(d.ambientThreshold, d.irThreshold), true
	case "SO":
		values, valid := ints(args, 2)
		if !valid {
			return "", false
		}
		d.ambientThreshold, d.irThreshold = values[0], values[1]
		return okReply(), true
	case "GS":
		return okReply(d.state, int(d.options.Now().Sub(d.started).Seconds())), true
	case "GV":
		return okReply(firmwareVersion, protocolVersion), true
	case "FE":
		d.state = d.vehicle
		return okReply(), true
	case "FD":
		d.state = stateDisabled
		return okReply(), true
	case "FS":
		d.state = stateSleeping
		return okReply(), true
	case "F1":
		if d.state == stateSleeping || d.state == stateDisabled {
			d.state = d.vehicle
		} else {
			d.state = stateSleeping
		}
		return okReply(), true
	case "FR":
		d.state = d.vehicle
		d.started = d.options.Now()
		return okReply(), true
	case "FF":
		if d.options.LegacyFlagCommands || len(args) < 2 {
			return "", false
		}
		return d.toggle(args[0], args[1])
	case "SD", "SE", "SF", "SG", "SR", "SV":
		if !d.options.LegacyFlagCommands || len(args) < 1 {
			return "", false
		}
		return d.toggle(verb[1:], args[0])
	}
	return "", false
}

var toggleFlags = map[string]string{
	"D": rapi.FlagDiodeCheck,
	"F": rapi.FlagGFISelfTest,
	"G": rapi.FlagGroundCheck,
	"R": rapi.FlagStuckRelayCheck,
	"T": rapi.FlagTempCheck,
	"V": rapi.FlagVentRequired,
}

func (d *Device) toggle(code, value string) (string, bool) {
	if value != "0" && value != "1" {
		return "", false
	}
	on := value == "1"
	if code == "E" {
		d.commandEcho = on
		return okReply(), true
	}
	name, known := toggleFlags[code]
	if !known {
		return "", false
	}
	d.flags = d.flags.With(name, on)
	return okReply(), true
}

func (d *Device) capacityRange() (int, int) {
	if d.flags.ServiceLevel() == 2 {
		return minCurrentL2, maxCurrentL2
	}
	return minCurrent, maxCurrentL1
}

func (d *Device) clamp(amps int) int {
	low, high := d.capacityRange()
	if amps < low {
		return low
	}
	if amps > high {
		return high
	}
	return amps
}

// SetVehicleState simulates plugging in, charging or unplugging a vehicle.
func (d *Device) SetVehicleState(state uint8) {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.vehicle = state
	if d.state != stateSleeping && d.state != stateDisabled {
		d.state = state
	}
}

func (d *Device) Flags() rapi.Flags {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.flags
}

// Received returns every wire command handled so far.
func (d *Device) Received() []string {
	d.mux.Lock()
	defer d.mux.Unlock()
	return append([]string(nil), d.received...)
}

// MaxActive reports the most commands that were ever being handled at once.
func (d *Device) MaxActive() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.maxActive
}

func (d *Device) Status() Status {
	d.mux.Lock()
	defer d.mux.Unlock()
	return Status{
		State:       d.state,
		Pilot:       d.pilot,
		Elapsed:     int(d.options.Now().Sub(d.started).Seconds()),
		Flags:       d.flags.Hex(),
		CommSent:    d.commSent,
		CommSuccess: d.commSuccess,
	}
}

func (d *Device) Config() Config {
	d.mux.Lock()
	defer d.mux.Unlock()
	return Config{
		Firmware:         firmwareVersion,
		Protocol:         protocolVersion,
		Service:          d.flags.ServiceLevel(),
		Scale:            d.scale,
		Offset:           d.offset,
		TimeLimit:        d.timeLimit * 15,
		ChargeLimit:      d.chargeLimit,
		AmbientThreshold: d.ambientThreshold,
		IRThreshold:      d.irThreshold,
		Settings:         d.flags,
	}
}
