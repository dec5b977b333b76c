package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

var Metrics *statsd.Client
var StatsEnabled bool

// Init connects the statsd client. An empty address leaves stats disabled.
func Init(address string) error {
	if address == "" {
		return nil
	}
	client, err := statsd.New(address, statsd.WithNamespace("evse."))
	if err != nil {
		return err
	}
	Metrics = client
	StatsEnabled = true
	return nil
}

func Close() {
	if StatsEnabled {
		StatsEnabled = false
		if err := Metrics.Close(); err != nil {
			log.Printf("Got error closing stats client %s", err.Error())
		}
	}
}

func FormatTag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

func SendGaugeMetric(name string, tags []string, value float64) {
	if StatsEnabled {
		err := Metrics.Gauge(name, value, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}

func SendCountMetric(name string, tags []string, value int64) {
	if StatsEnabled {
		err := Metrics.Count(name, value, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}

func SendTimingMetric(name string, tags []string, value time.Duration) {
	if StatsEnabled {
		err := Metrics.Timing(name, value, tags, 1)
		if err != nil {
			log.Printf("Got error trying to send metric %s", err.Error())
		}
	}
}
