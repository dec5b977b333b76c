package simulator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixedNow() time.Time {
	return time.Date(2018, 1, 25, 23, 54, 27, 0, time.UTC)
}

func get(t *testing.T, router http.Handler, path string, out interface{}) int {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && recorder.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
	}
	return recorder.Code
}

func Test_RapiEndpoint(t *testing.T) {
	device := New(Options{Protocol: rapi.ProtocolChecksummed, Now: fixedNow})
	var result rapi.CommandResult
	code := get(t, device.Router(), "/r?json=1&rapi="+url.QueryEscape("$GT"), &result)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "$GT", result.CMD)
	assert.Equal(t, "$OK 18 1 25 23 54 27^1A", result.RET)
	assert.True(t, rapi.VerifyChecksum(result.RET))
}

func Test_RapiEndpointMissingCommand(t *testing.T) {
	device := New(Options{})
	assert.Equal(t, http.StatusBadRequest, get(t, device.Router(), "/r?json=1", nil))
}

func Test_Handle(t *testing.T) {
	tests := []struct {
		name     string
		options  Options
		commands []string
		want     string
	}{
		{name: "unknown verb", commands: []string{"$ZZ"}, want: "$NK"},
		{name: "bad command checksum", commands: []string{"$GE^00"}, want: "$NK"},
		{name: "flags", commands: []string{"$GE"}, want: "$OK 32 0021"},
		{name: "legacy protocol has no trailer", commands: []string{"$GC"}, want: "$OK 10 80"},
		{name: "checksummed nk", options: Options{Protocol: rapi.ProtocolChecksummed}, commands: []string{"$ZZ"}, want: "$NK^21"},
		{name: "capacity clamps", commands: []string{"$SC 100", "$GE"}, want: "$OK 80 0021"},
		{name: "level 1 clamps pilot", commands: []string{"$SL 1", "$GE"}, want: "$OK 16 0020"},
		{name: "auto service level", commands: []string{"$SL A", "$GE"}, want: "$OK 32 0001"},
		{name: "ff toggle", commands: []string{"$FF G 0", "$GE"}, want: "$OK 32 0029"},
		{name: "ff toggle only takes 0 or 1", commands: []string{"$FF D 2"}, want: "$NK"},
		{name: "ff toggle value unchanged after bad value", commands: []string{"$FF D 2", "$GE"}, want: "$OK 32 0021"},
		{name: "legacy toggle only takes 0 or 1", options: Options{LegacyFlagCommands: true}, commands: []string{"$SG 01"}, want: "$NK"},
		{name: "ff rejected on legacy firmware", options: Options{LegacyFlagCommands: true}, commands: []string{"$FF G 0"}, want: "$NK"},
		{name: "legacy toggle", options: Options{LegacyFlagCommands: true}, commands: []string{"$SG 0", "$GE"}, want: "$OK 32 0029"},
		{name: "legacy toggle rejected on ff firmware", commands: []string{"$SG 0"}, want: "$NK"},
		{name: "time limit", commands: []string{"$S3 3", "$G3"}, want: "$OK 3"},
		{name: "timer", commands: []string{"$ST 22 0 6 30", "$GD"}, want: "$OK 22 0 6 30"},
		{name: "no rtc", options: Options{NoRTC: true}, commands: []string{"$GT"}, want: "$OK 165 165 165 165 165 85"},
		{name: "sleep", commands: []string{"$FS", "$GS"}, want: "$OK 254 0"},
		{name: "button wakes", commands: []string{"$FD", "$F1", "$GS"}, want: "$OK 1 0"},
		{name: "ammeter", commands: []string{"$SA 230 4", "$GA"}, want: "$OK 230 4"},
		{name: "missing args", commands: []string{"$SO 600"}, want: "$NK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.options.Now = fixedNow
			device := New(tt.options)
			var ret string
			for _, command := range tt.commands {
				ret = device.Handle(command)
			}
			assert.Equal(t, tt.want, ret)
		})
	}
}

func Test_StatusAndConfig(t *testing.T) {
	device := New(Options{Now: fixedNow})
	device.Handle("$S3 4")
	device.Handle("$ZZ")
	device.SetVehicleState(3)

	var status Status
	require.Equal(t, http.StatusOK, get(t, device.Router(), "/status", &status))
	assert.Equal(t, uint8(3), status.State)
	assert.Equal(t, 2, status.CommSent)
	assert.Equal(t, 1, status.CommSuccess)

	var config map[string]interface{}
	require.Equal(t, http.StatusOK, get(t, device.Router(), "/config", &config))
	assert.Equal(t, float64(60), config["time_limit"])
	assert.Equal(t, float64(2), config["service"])
	assert.IsType(t, map[string]interface{}{}, config["settings"])
}
