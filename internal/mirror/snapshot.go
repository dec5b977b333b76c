package mirror

import (
	"github.com/guregu/null"

	"github.com/jgulick48/evse-rapi/internal/observable"
)

// Snapshot is a point in time copy of the mirror. Fields not yet read from the device
// are null.
type Snapshot struct {
	Time               null.Time            `json:"time"`
	ServiceLevel       null.Int             `json:"service_level"`
	ActualServiceLevel null.Int             `json:"actual_service_level"`
	MinCurrent         null.Int             `json:"min_current"`
	MaxCurrent         null.Int             `json:"max_current"`
	CurrentCapacity    null.Int             `json:"current_capacity"`
	TimeLimit          null.Int             `json:"time_limit"`
	ChargeLimit        null.Int             `json:"charge_limit"`
	DelayTimer         null.Bool            `json:"delay_timer"`
	DelayTimerStart    null.String          `json:"delay_timer_start"`
	DelayTimerStop     null.String          `json:"delay_timer_stop"`
	SafetyChecks       map[string]null.Bool `json:"safety_checks"`
	TempCheckSupported null.Bool            `json:"temp_check_supported"`
	State              null.Int             `json:"state"`
	StateName          null.String          `json:"state_name"`
}

func (m *Mirror) Snapshot() Snapshot {
	snapshot := Snapshot{
		ServiceLevel:       intValue(m.ServiceLevel),
		ActualServiceLevel: intValue(m.ActualServiceLevel),
		MinCurrent:         intValue(m.MinCurrent),
		MaxCurrent:         intValue(m.MaxCurrent),
		CurrentCapacity:    intValue(m.CurrentCapacity),
		TimeLimit:          intValue(m.TimeLimit),
		ChargeLimit:        intValue(m.ChargeLimit),
		TempCheckSupported: boolValue(m.TempCheckSupported),
		SafetyChecks:       make(map[string]null.Bool, len(m.SafetyChecks)),
	}
	if m.TimeValid.Get() {
		snapshot.Time = null.TimeFrom(m.Time.Get())
	}
	if m.Timer.Known() {
		window := m.Timer.Get()
		snapshot.DelayTimer = null.BoolFrom(window.Enabled)
		snapshot.DelayTimerStart = null.StringFrom(window.Start)
		snapshot.DelayTimerStop = null.StringFrom(window.Stop)
	}
	for name, field := range m.SafetyChecks {
		snapshot.SafetyChecks[name] = boolValue(field)
	}
	if m.State.Known() {
		state := m.State.Get()
		snapshot.State = null.IntFrom(int64(state))
		snapshot.StateName = null.StringFrom(state.String())
	}
	return snapshot
}

func intValue(field *observable.Field[int]) null.Int {
	return null.NewInt(int64(field.Get()), field.Known())
}

func boolValue(field *observable.Field[bool]) null.Bool {
	return null.NewBool(field.Get(), field.Known())
}
