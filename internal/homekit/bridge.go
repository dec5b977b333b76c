package homekit

import (
	"context"

	"github.com/jgulick48/hc"
	"github.com/jgulick48/hc/accessory"
	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/mirror"
	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/openevse"
)

const (
	bridgeID = 1
	outletID = 2
)

// Bridge exposes the EVSE to HomeKit as an outlet. Turning the outlet off puts the EVSE
// to sleep, turning it on enables it.
type Bridge struct {
	config models.HomeKitConfiguration
	mirror *mirror.Mirror
	bridge *accessory.Bridge
	outlet *accessory.Outlet
}

func NewBridge(config models.HomeKitConfiguration, m *mirror.Mirror) *Bridge {
	b := &Bridge{
		config: config,
		mirror: m,
		bridge: accessory.NewBridge(accessory.Info{
			Name: config.BridgeName,
			ID:   bridgeID,
		}),
		outlet: accessory.NewOutlet(accessory.Info{
			Name:         "EVSE",
			Manufacturer: "OpenEVSE",
			ID:           outletID,
		}),
	}
	m.State.Watch(b.showState)
	return b
}

// OutletState maps an EVSE state onto the outlet's On and OutletInUse characteristics.
func OutletState(state openevse.State) (on bool, inUse bool) {
	return state.IsEnabled(), state.IsCharging()
}

// ActionFor returns the status action for an outlet switched on or off.
func ActionFor(on bool) openevse.Action {
	if on {
		return openevse.ActionEnable
	}
	return openevse.ActionSleep
}

func (b *Bridge) showState(state openevse.State) {
	on, inUse := OutletState(state)
	b.outlet.Outlet.On.SetValue(on)
	b.outlet.Outlet.OutletInUse.SetValue(inUse)
}

func (b *Bridge) switched(ctx context.Context, on bool) {
	action := ActionFor(on)
	log.Printf("HomeKit requested EVSE %s", action)
	if err := b.mirror.SetStatus(ctx, action); err != nil {
		// Put the switch back to what the EVSE is actually doing.
		b.showState(b.mirror.State.Get())
	}
}

// Run serves the HomeKit accessory until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	b.outlet.Outlet.On.OnValueRemoteUpdate(func(on bool) {
		go b.switched(ctx, on)
	})
	hcConfig := hc.Config{
		Pin:         b.config.PIN,
		Port:        b.config.Port,
		StoragePath: b.config.StoragePath,
	}
	t, err := hc.NewIPTransport(hcConfig, b.bridge.Accessory, b.outlet.Accessory)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		<-t.Stop()
	}()
	t.Start()
	return nil
}
