package mirror

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/openevse"
)

// SetStatus moves the EVSE to the state action asks for. Nothing is sent when the EVSE
// is already there.
func (m *Mirror) SetStatus(ctx context.Context, action openevse.Action) error {
	m.statusMux.Lock()
	defer m.statusMux.Unlock()

	if m.State.Known() && action.Satisfied(m.State.Get()) {
		return nil
	}
	if m.Timer.Get().Enabled && (action == openevse.ActionSleep || action == openevse.ActionEnable) {
		// With the delay timer running the firmware may ignore FE/FS, but the
		// front panel button still toggles between sleeping and enabled.
		if err := m.device.PressButton(ctx); err == nil {
			return m.RefreshStatus(ctx)
		}
		log.Printf("Button press failed, falling back to %s command", action)
	}
	state, err := m.device.SetStatus(ctx, action)
	if err != nil {
		log.Printf("Unable to %s EVSE: %s", action, err)
		return err
	}
	m.State.Update(state)
	return nil
}

// StartTimer enables the delay timer for the given HH:MM window.
func (m *Mirror) StartTimer(ctx context.Context, start, stop string) error {
	window, err := m.device.SetTimer(ctx, start, stop)
	if err != nil {
		return err
	}
	m.Timer.Update(window)
	return nil
}

func (m *Mirror) StopTimer(ctx context.Context) error {
	window, err := m.device.CancelTimer(ctx)
	if err != nil {
		return err
	}
	m.Timer.Update(window)
	return nil
}

// SetTime sets the EVSE clock and mirrors the time it reports back.
func (m *Mirror) SetTime(ctx context.Context, t time.Time) error {
	now, valid, err := m.device.SetTime(ctx, t)
	if err != nil {
		return err
	}
	m.Time.Update(now)
	m.TimeValid.Update(valid)
	return nil
}

// Restart resets the EVSE and refreshes its state once it answers again.
func (m *Mirror) Restart(ctx context.Context) error {
	if err := m.device.Reset(ctx); err != nil {
		return err
	}
	return m.RefreshStatus(ctx)
}
