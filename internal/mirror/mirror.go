package mirror

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/metrics"
	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/observable"
	"github.com/jgulick48/evse-rapi/internal/openevse"
	"github.com/jgulick48/evse-rapi/internal/pipeline"
)

// Device is the part of the EVSE client the mirror drives. *openevse.Client satisfies it.
type Device interface {
	Time(ctx context.Context) (time.Time, bool, error)
	SetTime(ctx context.Context, t time.Time) (time.Time, bool, error)
	ServiceLevel(ctx context.Context) (int, int, error)
	SetServiceLevel(ctx context.Context, level int) (int, int, error)
	CurrentCapacityRange(ctx context.Context) (int, int, error)
	CurrentCapacity(ctx context.Context) (int, error)
	SetCurrentCapacity(ctx context.Context, amps int) (int, error)
	TimeLimit(ctx context.Context) (int, error)
	SetTimeLimit(ctx context.Context, minutes int) (int, error)
	ChargeLimit(ctx context.Context) (int, error)
	SetChargeLimit(ctx context.Context, kWh int) (int, error)
	SafetyCheck(ctx context.Context, check openevse.SafetyCheck) (bool, error)
	SetSafetyCheck(ctx context.Context, check openevse.SafetyCheck, enabled bool) (bool, error)
	Timer(ctx context.Context) (openevse.TimerWindow, error)
	SetTimer(ctx context.Context, start, stop string) (openevse.TimerWindow, error)
	CancelTimer(ctx context.Context) (openevse.TimerWindow, error)
	Status(ctx context.Context) (openevse.State, error)
	SetStatus(ctx context.Context, action openevse.Action) (openevse.State, error)
	PressButton(ctx context.Context) error
	Reset(ctx context.Context) error
}

var _ Device = (*openevse.Client)(nil)

// Mirror keeps a local copy of the EVSE settings in step with the device. Values read
// from the device are applied with Update; values changed locally with Set are written
// back once the first full pass has completed.
type Mirror struct {
	device         Device
	pollInterval   time.Duration
	statusInterval time.Duration

	Time               *observable.Field[time.Time]
	TimeValid          *observable.Field[bool]
	ServiceLevel       *observable.Field[int]
	ActualServiceLevel *observable.Field[int]
	MinCurrent         *observable.Field[int]
	MaxCurrent         *observable.Field[int]
	CurrentCapacity    *observable.Field[int]
	TimeLimit          *observable.Field[int]
	ChargeLimit        *observable.Field[int]
	Timer              *observable.Field[openevse.TimerWindow]
	SafetyChecks       map[string]*observable.Field[bool]
	TempCheckSupported *observable.Field[bool]
	State              *observable.Field[openevse.State]

	updates   *pipeline.Pipeline
	stepNames []string

	subscribeOnce sync.Once
	subscribed    chan struct{}
	guards        map[string]*guard
	writes        writeGroup
	statusMux     sync.Mutex

	ctxMux sync.RWMutex
	ctx    context.Context
}

func New(device Device, config models.EVSEConfiguration) *Mirror {
	m := &Mirror{
		device:             device,
		pollInterval:       config.PollInterval.Duration,
		statusInterval:     config.StatusInterval.Duration,
		Time:               observable.New(time.Time{}),
		TimeValid:          observable.New(false),
		ServiceLevel:       observable.New(-1),
		ActualServiceLevel: observable.New(-1),
		MinCurrent:         observable.New(-1),
		MaxCurrent:         observable.New(-1),
		CurrentCapacity:    observable.New(-1),
		TimeLimit:          observable.New(-1),
		ChargeLimit:        observable.New(-1),
		Timer:              observable.New(openevse.DisabledTimer),
		SafetyChecks:       make(map[string]*observable.Field[bool], len(openevse.SafetyChecks)),
		TempCheckSupported: observable.New(false),
		State:              observable.New(openevse.StateUnknown),
		subscribed:         make(chan struct{}),
		guards:             make(map[string]*guard),
		ctx:                context.Background(),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = models.DefaultPollInterval
	}
	if m.statusInterval <= 0 {
		m.statusInterval = models.DefaultStatusInterval
	}
	for _, check := range openevse.SafetyChecks {
		m.SafetyChecks[check.Flag] = observable.New(false)
	}
	m.createGuards()
	m.updates = m.updateList()
	m.updates.OnSettle(m.stepSettled)
	m.watchMetrics()
	return m
}

// SafetyCheck returns the field mirroring check.
func (m *Mirror) SafetyCheck(check openevse.SafetyCheck) *observable.Field[bool] {
	return m.SafetyChecks[check.Flag]
}

// Progress reports how far the current full pass has got.
func (m *Mirror) Progress() (done int, total int) {
	return m.updates.Cursor(), m.updates.Total()
}

// Subscribed is closed once local changes start being written to the device.
func (m *Mirror) Subscribed() <-chan struct{} {
	return m.subscribed
}

// Refresh makes one full pass over the update list. Individual step failures are logged
// and leave their fields untouched.
func (m *Mirror) Refresh(ctx context.Context) error {
	started := time.Now()
	err := m.updates.Run(ctx)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		log.Debugf("Skipping EVSE refresh, previous pass still running")
		return err
	}
	if err != nil {
		return err
	}
	metrics.ObserveSyncPass(time.Since(started))
	m.subscribeOnce.Do(m.subscribe)
	return nil
}

// RefreshStatus reads only the EVSE state.
func (m *Mirror) RefreshStatus(ctx context.Context) error {
	state, err := m.device.Status(ctx)
	if err != nil {
		log.Printf("Unable to read EVSE status: %s", err)
		return err
	}
	m.State.Update(state)
	return nil
}

// Run keeps the mirror in sync until ctx ends. Writes still in flight are waited for
// before it returns.
func (m *Mirror) Run(ctx context.Context) {
	m.ctxMux.Lock()
	m.ctx = ctx
	m.ctxMux.Unlock()

	_ = m.RefreshStatus(ctx)
	_ = m.Refresh(ctx)
	poll := time.NewTicker(m.pollInterval)
	status := time.NewTicker(m.statusInterval)
	defer poll.Stop()
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			m.writes.close()
			return
		case <-poll.C:
			_ = m.Refresh(ctx)
		case <-status.C:
			_ = m.RefreshStatus(ctx)
		}
	}
}

// Wait blocks until no write to the device is in flight.
func (m *Mirror) Wait() {
	m.writes.wait()
}

func (m *Mirror) writeContext() context.Context {
	m.ctxMux.RLock()
	defer m.ctxMux.RUnlock()
	return m.ctx
}

func (m *Mirror) watchMetrics() {
	ints := map[string]*observable.Field[int]{
		"service_level":        m.ServiceLevel,
		"actual_service_level": m.ActualServiceLevel,
		"min_current":          m.MinCurrent,
		"max_current":          m.MaxCurrent,
		"current_capacity":     m.CurrentCapacity,
		"time_limit":           m.TimeLimit,
		"charge_limit":         m.ChargeLimit,
	}
	for name, field := range ints {
		name := name
		field.Watch(func(value int) { metrics.ObserveSetting(name, float64(value)) })
	}
	for name, field := range m.SafetyChecks {
		name := name
		field.Watch(func(value bool) { metrics.ObserveSetting(name, metrics.BoolValue(value)) })
	}
	m.Timer.Watch(func(value openevse.TimerWindow) {
		metrics.ObserveSetting("delay_timer", metrics.BoolValue(value.Enabled))
	})
	m.State.Watch(func(state openevse.State) {
		log.Printf("EVSE state is now %s", state)
		metrics.ObserveState(float64(state))
	})
}
