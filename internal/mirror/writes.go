package mirror

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/observable"
	"github.com/jgulick48/evse-rapi/internal/openevse"
)

// writeGroup tracks writes in flight. Once closed it refuses new writes, so shutdown can
// wait for the running ones without racing new submissions.
type writeGroup struct {
	mux    sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (w *writeGroup) add() bool {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.closed {
		return false
	}
	w.wg.Add(1)
	return true
}

func (w *writeGroup) done() {
	w.wg.Done()
}

func (w *writeGroup) wait() {
	w.wg.Wait()
}

// close stops new writes and waits for the ones in flight.
func (w *writeGroup) close() {
	w.mux.Lock()
	w.closed = true
	w.mux.Unlock()
	w.wg.Wait()
}

// guard allows one write per field in flight. A write submitted while another is pending
// replaces any write already queued behind it.
type guard struct {
	mux  sync.Mutex
	busy bool
	next func()
}

func (g *guard) submit(writes *writeGroup, write func()) {
	g.mux.Lock()
	if g.busy {
		g.next = write
		g.mux.Unlock()
		return
	}
	if !writes.add() {
		g.mux.Unlock()
		log.Debugf("Dropping device write, mirror is shutting down")
		return
	}
	g.busy = true
	g.mux.Unlock()
	go func() {
		defer writes.done()
		for write != nil {
			write()
			g.mux.Lock()
			write, g.next = g.next, nil
			if write == nil {
				g.busy = false
			}
			g.mux.Unlock()
		}
	}()
}

func (g *guard) Busy() bool {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.busy
}

// superseded reports whether a newer write is queued behind the running one.
func (g *guard) superseded() bool {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.next != nil
}

var writableFields = []string{"service_level", "current_capacity", "time_limit", "charge_limit"}

func (m *Mirror) createGuards() {
	for _, name := range writableFields {
		m.guards[name] = &guard{}
	}
	for _, check := range openevse.SafetyChecks {
		m.guards[check.Flag] = &guard{}
	}
}

func (m *Mirror) guard(name string) *guard {
	return m.guards[name]
}

// Writing reports whether a write for the named field is in flight.
func (m *Mirror) Writing(name string) bool {
	g, ok := m.guards[name]
	return ok && g.Busy()
}

// subscribe hangs a device write off every mutable field. It runs once, after the first
// full pass, so the initial device readings never trigger writes.
func (m *Mirror) subscribe() {
	serviceLevel := m.guard("service_level")
	m.ServiceLevel.Subscribe(func(level int) {
		serviceLevel.submit(&m.writes, func() {
			ctx := m.writeContext()
			_, actual, err := m.device.SetServiceLevel(ctx, level)
			if err != nil {
				log.Printf("Unable to set service level to %d: %s", level, err)
				return
			}
			m.ActualServiceLevel.Update(actual)
			// The allowed current range follows the service level and the device may
			// have clamped the capacity with it.
			_ = m.readCurrentCapacityRange(ctx)
			_ = m.readCurrentCapacity(ctx)
		})
	})

	capacity := m.guard("current_capacity")
	m.CurrentCapacity.Subscribe(func(amps int) {
		if serviceLevel.Busy() {
			return
		}
		capacity.submit(&m.writes, func() {
			confirmed, err := m.device.SetCurrentCapacity(m.writeContext(), amps)
			if err != nil {
				log.Printf("Unable to set current capacity to %dA: %s", amps, err)
				return
			}
			if !capacity.superseded() {
				m.CurrentCapacity.Update(confirmed)
			}
		})
	})

	bindInt(m, "time_limit", m.TimeLimit, m.device.SetTimeLimit, func(limit int) int {
		return SnapToOption(TimeLimitOptions, limit)
	})
	bindInt(m, "charge_limit", m.ChargeLimit, m.device.SetChargeLimit, func(limit int) int {
		return SnapToOption(ChargeLimitOptions, limit)
	})

	for _, check := range openevse.SafetyChecks {
		check := check
		field := m.SafetyCheck(check)
		g := m.guard(check.Flag)
		field.Subscribe(func(enabled bool) {
			g.submit(&m.writes, func() {
				confirmed, err := m.device.SetSafetyCheck(m.writeContext(), check, enabled)
				if err != nil {
					log.Printf("Unable to set %s to %t: %s", check.Flag, enabled, err)
					return
				}
				if !g.superseded() {
					field.Update(confirmed)
				}
			})
		})
	}
	close(m.subscribed)
}

func bindInt(m *Mirror, name string, field *observable.Field[int], write func(context.Context, int) (int, error), snap func(int) int) {
	g := m.guard(name)
	field.Subscribe(func(value int) {
		g.submit(&m.writes, func() {
			confirmed, err := write(m.writeContext(), value)
			if err != nil {
				log.Printf("Unable to set %s to %d: %s", name, value, err)
				return
			}
			if !g.superseded() {
				field.Update(snap(confirmed))
			}
		})
	})
}
