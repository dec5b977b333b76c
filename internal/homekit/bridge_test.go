package homekit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jgulick48/evse-rapi/internal/mirror"
	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/openevse"
)

func Test_OutletState(t *testing.T) {
	tests := []struct {
		state openevse.State
		on    bool
		inUse bool
	}{
		{state: openevse.StateNotConnected, on: true},
		{state: openevse.StateConnected, on: true},
		{state: openevse.StateCharging, on: true, inUse: true},
		{state: openevse.StateNoGround},
		{state: openevse.StateSleeping},
		{state: openevse.StateDisabled},
	}
	for _, tt := range tests {
		on, inUse := OutletState(tt.state)
		assert.Equal(t, tt.on, on, tt.state.String())
		assert.Equal(t, tt.inUse, inUse, tt.state.String())
	}
}

func Test_ActionFor(t *testing.T) {
	assert.Equal(t, openevse.ActionEnable, ActionFor(true))
	assert.Equal(t, openevse.ActionSleep, ActionFor(false))
}

func Test_OutletFollowsMirror(t *testing.T) {
	m := mirror.New(nil, models.EVSEConfiguration{})
	b := NewBridge(models.HomeKitConfiguration{BridgeName: "OpenEVSE", PIN: "00102003"}, m)

	m.State.Update(openevse.StateCharging)
	assert.True(t, b.outlet.Outlet.On.GetValue())
	assert.True(t, b.outlet.Outlet.OutletInUse.GetValue())

	m.State.Update(openevse.StateSleeping)
	assert.False(t, b.outlet.Outlet.On.GetValue())
	assert.False(t, b.outlet.Outlet.OutletInUse.GetValue())
}
