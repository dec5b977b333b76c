package mirror

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/metrics"
	"github.com/jgulick48/evse-rapi/internal/openevse"
	"github.com/jgulick48/evse-rapi/internal/pipeline"
)

// TimeLimitOptions are the selectable charge time limits in minutes.
var TimeLimitOptions = []int{0, 15, 30, 45, 60, 90, 120, 150, 180, 240, 300, 360, 420, 480}

// ChargeLimitOptions are the selectable energy limits in kWh.
var ChargeLimitOptions = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 70, 80, 90}

// SnapToOption returns the first option not below value. Values past the last option are
// returned unchanged.
func SnapToOption(options []int, value int) int {
	for _, option := range options {
		if option >= value {
			return option
		}
	}
	return value
}

type step struct {
	name string
	run  pipeline.Step
}

func (m *Mirror) updateList() *pipeline.Pipeline {
	steps := []step{
		{"time", m.readTime},
		{"service_level", m.readServiceLevel},
		{"current_capacity_range", m.readCurrentCapacityRange},
		{"current_capacity", m.readCurrentCapacity},
		{"time_limit", m.readTimeLimit},
		{"charge_limit", m.readChargeLimit},
		{"gfi_self_test", m.readSafetyCheck(openevse.GFISelfTest)},
		{"ground_check", m.readSafetyCheck(openevse.GroundCheck)},
		{"stuck_relay_check", m.readSafetyCheck(openevse.StuckRelayCheck)},
		{"temp_check", m.readSafetyCheck(openevse.TempCheck)},
		{"diode_check", m.readSafetyCheck(openevse.DiodeCheck)},
		{"vent_required", m.readSafetyCheck(openevse.VentRequired)},
		{"temp_check_supported", m.probeTempCheck},
		{"timer", m.readTimer},
	}
	runs := make([]pipeline.Step, len(steps))
	m.stepNames = make([]string, len(steps))
	for i, s := range steps {
		runs[i] = s.run
		m.stepNames[i] = s.name
	}
	return pipeline.New(runs...)
}

func (m *Mirror) stepSettled(index int, err error) {
	if err == nil {
		return
	}
	name := m.stepNames[index]
	log.WithField("step", name).Printf("EVSE update step failed: %s", err)
	metrics.ObserveStepFailure(name)
}

func (m *Mirror) readTime(ctx context.Context) error {
	now, valid, err := m.device.Time(ctx)
	if err != nil {
		return err
	}
	m.Time.Update(now)
	m.TimeValid.Update(valid)
	return nil
}

func (m *Mirror) readServiceLevel(ctx context.Context) error {
	level, actual, err := m.device.ServiceLevel(ctx)
	if err != nil {
		return err
	}
	m.ServiceLevel.Update(level)
	m.ActualServiceLevel.Update(actual)
	return nil
}

func (m *Mirror) readCurrentCapacityRange(ctx context.Context) error {
	low, high, err := m.device.CurrentCapacityRange(ctx)
	if err != nil {
		return err
	}
	m.MinCurrent.Update(low)
	m.MaxCurrent.Update(high)
	return nil
}

func (m *Mirror) readCurrentCapacity(ctx context.Context) error {
	amps, err := m.device.CurrentCapacity(ctx)
	if err != nil {
		return err
	}
	m.CurrentCapacity.Update(amps)
	return nil
}

func (m *Mirror) readTimeLimit(ctx context.Context) error {
	limit, err := m.device.TimeLimit(ctx)
	if err != nil {
		return err
	}
	m.TimeLimit.Update(SnapToOption(TimeLimitOptions, limit))
	return nil
}

func (m *Mirror) readChargeLimit(ctx context.Context) error {
	limit, err := m.device.ChargeLimit(ctx)
	if err != nil {
		return err
	}
	m.ChargeLimit.Update(SnapToOption(ChargeLimitOptions, limit))
	return nil
}

func (m *Mirror) readSafetyCheck(check openevse.SafetyCheck) pipeline.Step {
	return func(ctx context.Context) error {
		enabled, err := m.device.SafetyCheck(ctx, check)
		if err != nil {
			return err
		}
		m.SafetyCheck(check).Update(enabled)
		return nil
	}
}

var errTempCheckUnknown = errors.New("temperature check setting not read yet")

// probeTempCheck writes the current temperature check setting back unchanged. Firmware
// without the temperature check rejects the write. Nothing is written until the setting
// has been read from the device.
func (m *Mirror) probeTempCheck(ctx context.Context) error {
	current := m.SafetyCheck(openevse.TempCheck)
	if !current.Known() {
		return errTempCheckUnknown
	}
	_, err := m.device.SetSafetyCheck(ctx, openevse.TempCheck, current.Get())
	m.TempCheckSupported.Update(err == nil)
	return err
}

func (m *Mirror) readTimer(ctx context.Context) error {
	window, err := m.device.Timer(ctx)
	if err != nil {
		return err
	}
	m.Timer.Update(window)
	return nil
}
