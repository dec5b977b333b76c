package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(rapiRequests.WithLabelValues("GE", "ok"))
	ObserveRequest("GE", "ok", 20*time.Millisecond)
	ObserveRequest("GE", "ok", 30*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(rapiRequests.WithLabelValues("GE", "ok")))
}

func TestObserveSetting(t *testing.T) {
	ObserveSetting("diode_check", BoolValue(true))
	assert.Equal(t, float64(1), testutil.ToFloat64(evseSetting.WithLabelValues("diode_check")))
	ObserveSetting("diode_check", BoolValue(false))
	assert.Equal(t, float64(0), testutil.ToFloat64(evseSetting.WithLabelValues("diode_check")))
	ObserveState(254)
	assert.Equal(t, float64(254), testutil.ToFloat64(evseState.WithLabelValues()))
}

func TestRegisterPrometheusTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterPrometheus()
		RegisterPrometheus()
	})
}

func TestStatsDisabled(t *testing.T) {
	assert.NoError(t, Init(""))
	assert.False(t, StatsEnabled)
	assert.NotPanics(t, func() {
		SendGaugeMetric("x", nil, 1)
		SendCountMetric("x", nil, 1)
		SendTimingMetric("x", nil, time.Second)
		Close()
	})
}
