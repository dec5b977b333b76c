package openevse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

var (
	ErrInvalidTimerWindow  = errors.New("timer start and stop must be HH:MM")
	ErrInvalidServiceLevel = errors.New("service level must be 0 (auto), 1 or 2")
	ErrUnknownAction       = errors.New("unknown status action")
)

const (
	timeLimitStep = 15
	// The RTC-less controller reports this pattern from GT.
	noRTCValue       = 165
	noRTCSecondValue = 85
)

var (
	serviceLevels = []string{"A", "1", "2"}
	timePattern   = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// Reset restarts the controller. It uses the long reset timeout.
func (c *Client) Reset(ctx context.Context) error {
	return c.Send(ctx, NewRequest(c.Endpoint(), rapi.NewCommand("FR")), c.resetTimeout)
}

// Raw sends an arbitrary wire command such as "$GE" and returns the decoded reply.
func (c *Client) Raw(ctx context.Context, wire string) (rapi.Reply, error) {
	cmd, err := rapi.ParseCommand(wire)
	if err != nil {
		return rapi.Reply{}, err
	}
	req := NewRequest(c.Endpoint(), cmd)
	err = c.Send(ctx, req, c.standardTimeout)
	return req.Reply(), err
}

// Time reads the device clock. valid is false when no RTC is fitted.
func (c *Client) Time(ctx context.Context) (t time.Time, valid bool, err error) {
	err = c.request(ctx, rapi.NewCommand("GT"), func(reply rapi.Reply) error {
		values, err := reply.Ints(6)
		if err != nil {
			return err
		}
		if isNoRTC(values) {
			t, valid = time.Time{}, false
			return nil
		}
		t = time.Date(2000+values[0], time.Month(values[1]), values[2], values[3], values[4], values[5], 0, c.location)
		valid = true
		return nil
	})
	return t, valid, err
}

func isNoRTC(values []int) bool {
	for _, value := range values[:5] {
		if value != noRTCValue {
			return false
		}
	}
	return values[5] == noRTCSecondValue
}

func (c *Client) SetTime(ctx context.Context, t time.Time) (time.Time, bool, error) {
	t = t.In(c.location)
	cmd := rapi.NewCommand("S1", t.Year()-2000, int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if err := c.request(ctx, cmd, nil); err != nil {
		return time.Time{}, false, err
	}
	return c.Time(ctx)
}

func (c *Client) Timer(ctx context.Context) (TimerWindow, error) {
	var window TimerWindow
	err := c.request(ctx, rapi.NewCommand("GD"), func(reply rapi.Reply) error {
		values, err := reply.Ints(4)
		if err != nil {
			return err
		}
		if values[0] == 0 && values[1] == 0 && values[2] == 0 && values[3] == 0 {
			window = DisabledTimer
			return nil
		}
		window = TimerWindow{
			Enabled: true,
			Start:   fmt.Sprintf("%02d:%02d", values[0], values[1]),
			Stop:    fmt.Sprintf("%02d:%02d", values[2], values[3]),
		}
		return nil
	})
	return window, err
}

// ValidTime reports whether value is a 24 hour HH:MM time.
func ValidTime(value string) bool {
	return timePattern.MatchString(value)
}

// SetTimer sets the delay charge window. Nothing is sent if either time is malformed.
func (c *Client) SetTimer(ctx context.Context, start, stop string) (TimerWindow, error) {
	startMatch := timePattern.FindStringSubmatch(start)
	stopMatch := timePattern.FindStringSubmatch(stop)
	if startMatch == nil || stopMatch == nil {
		return TimerWindow{}, ErrInvalidTimerWindow
	}
	cmd := rapi.NewCommand("ST", atoi(startMatch[1]), atoi(startMatch[2]), atoi(stopMatch[1]), atoi(stopMatch[2]))
	if err := c.request(ctx, cmd, nil); err != nil {
		return TimerWindow{}, err
	}
	return c.Timer(ctx)
}

func (c *Client) CancelTimer(ctx context.Context) (TimerWindow, error) {
	if err := c.request(ctx, rapi.NewCommand("ST", 0, 0, 0, 0), nil); err != nil {
		return TimerWindow{}, err
	}
	return c.Timer(ctx)
}

func atoi(value string) int {
	i, _ := strconv.Atoi(value)
	return i
}

func (c *Client) readInt(ctx context.Context, verb string, index int) (int, error) {
	var value int
	err := c.request(ctx, rapi.NewCommand(verb), func(reply rapi.Reply) error {
		var err error
		value, err = reply.Int(index)
		return err
	})
	return value, err
}

func (c *Client) readPair(ctx context.Context, verb string) (int, int, error) {
	var first, second int
	err := c.request(ctx, rapi.NewCommand(verb), func(reply rapi.Reply) error {
		values, err := reply.Ints(2)
		if err != nil {
			return err
		}
		first, second = values[0], values[1]
		return nil
	})
	return first, second, err
}

// TimeLimit returns the charge time limit in minutes. 0 means no limit.
func (c *Client) TimeLimit(ctx context.Context) (int, error) {
	limit, err := c.readInt(ctx, "G3", 0)
	return limit * timeLimitStep, err
}

// SetTimeLimit rounds minutes to the nearest quarter hour and returns the limit the device kept.
func (c *Client) SetTimeLimit(ctx context.Context, minutes int) (int, error) {
	steps := int(math.Floor(float64(minutes)/timeLimitStep + 0.5))
	if err := c.request(ctx, rapi.NewCommand("S3", steps), nil); err != nil {
		return 0, err
	}
	return c.TimeLimit(ctx)
}

// ChargeLimit returns the energy limit in kWh. 0 means no limit.
func (c *Client) ChargeLimit(ctx context.Context) (int, error) {
	return c.readInt(ctx, "GH", 0)
}

func (c *Client) SetChargeLimit(ctx context.Context, kWh int) (int, error) {
	if err := c.request(ctx, rapi.NewCommand("SH", kWh), nil); err != nil {
		return 0, err
	}
	return c.ChargeLimit(ctx)
}

// AmmeterSettings returns the current sensor scale factor and offset.
func (c *Client) AmmeterSettings(ctx context.Context) (scale int, offset int, err error) {
	return c.readPair(ctx, "GA")
}

func (c *Client) SetAmmeterSettings(ctx context.Context, scale, offset int) (int, int, error) {
	if err := c.request(ctx, rapi.NewCommand("SA", scale, offset), nil); err != nil {
		return 0, 0, err
	}
	return c.AmmeterSettings(ctx)
}

// OverTemperatureThresholds returns the ambient and IR thresholds in tenths of a degree.
func (c *Client) OverTemperatureThresholds(ctx context.Context) (ambient int, ir int, err error) {
	return c.readPair(ctx, "GO")
}

func (c *Client) SetOverTemperatureThresholds(ctx context.Context, ambient, ir int) (int, int, error) {
	if err := c.request(ctx, rapi.NewCommand("SO", ambient, ir), nil); err != nil {
		return 0, 0, err
	}
	return c.OverTemperatureThresholds(ctx)
}

// CurrentCapacity returns the pilot current in amps.
func (c *Client) CurrentCapacity(ctx context.Context) (int, error) {
	return c.readInt(ctx, "GE", 0)
}

func (c *Client) SetCurrentCapacity(ctx context.Context, amps int) (int, error) {
	if err := c.request(ctx, rapi.NewCommand("SC", amps), nil); err != nil {
		return 0, err
	}
	return c.CurrentCapacity(ctx)
}

// CurrentCapacityRange returns the min and max amps allowed at the current service level.
func (c *Client) CurrentCapacityRange(ctx context.Context) (int, int, error) {
	return c.readPair(ctx, "GC")
}

func (c *Client) Flags(ctx context.Context) (rapi.Flags, error) {
	var flags rapi.Flags
	err := c.request(ctx, rapi.NewCommand("GE"), func(reply rapi.Reply) error {
		raw, err := reply.Hex16(1)
		flags = rapi.Flags(raw)
		return err
	})
	return flags, err
}

// ServiceLevel returns the effective level (0 when auto detection is on) and the actual level.
func (c *Client) ServiceLevel(ctx context.Context) (int, int, error) {
	flags, err := c.Flags(ctx)
	if err != nil {
		return 0, 0, err
	}
	actual := flags.ServiceLevel()
	if flags.AutoServiceLevel() {
		return 0, actual, nil
	}
	return actual, actual, nil
}

func (c *Client) SetServiceLevel(ctx context.Context, level int) (int, int, error) {
	if level < 0 || level >= len(serviceLevels) {
		return 0, 0, ErrInvalidServiceLevel
	}
	if err := c.request(ctx, rapi.NewCommand("SL", serviceLevels[level]), nil); err != nil {
		return 0, 0, err
	}
	return c.ServiceLevel(ctx)
}

func (c *Client) SafetyCheck(ctx context.Context, check SafetyCheck) (bool, error) {
	flags, err := c.Flags(ctx)
	if err != nil {
		return false, err
	}
	return flags.Enabled(check.Flag), nil
}

// SetSafetyCheck toggles a safety test and returns the state confirmed by the flag word.
func (c *Client) SetSafetyCheck(ctx context.Context, check SafetyCheck, enabled bool) (bool, error) {
	cmd := rapi.NewCommand("FF", check.SubCode, enabled)
	if c.legacyFlagCommands && check.LegacyVerb != "" {
		cmd = rapi.NewCommand(check.LegacyVerb, enabled)
	}
	if err := c.request(ctx, cmd, nil); err != nil {
		return false, err
	}
	return c.SafetyCheck(ctx, check)
}

func (c *Client) Status(ctx context.Context) (State, error) {
	state, err := c.readInt(ctx, "GS", 0)
	if err == nil && (state < 0 || state > 255) {
		err = rapi.WithCommand(rapi.ParseError(fmt.Sprintf("state %d out of range", state)), "$GS")
	}
	return State(state), err
}

func (c *Client) SetStatus(ctx context.Context, action Action) (State, error) {
	verb, ok := actionVerbs[action]
	if !ok {
		return StateUnknown, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err := c.request(ctx, rapi.NewCommand(verb), nil); err != nil {
		return StateUnknown, err
	}
	return c.Status(ctx)
}

// PressButton emulates a press of the front panel button.
func (c *Client) PressButton(ctx context.Context) error {
	return c.request(ctx, rapi.NewCommand("F1"), nil)
}
