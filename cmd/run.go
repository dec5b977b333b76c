package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgulick48/evse-rapi/internal/homekit"
	"github.com/jgulick48/evse-rapi/internal/metrics"
	"github.com/jgulick48/evse-rapi/internal/mirror"
	"github.com/jgulick48/evse-rapi/internal/mqtt"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep the charger mirror in sync and serve it",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if err := metrics.Init(config.StatsServer); err != nil {
		log.Printf("Unable to start stats client: %s", err)
	}
	defer metrics.Close()
	metrics.RegisterPrometheus()

	client, closer, err := openClient(config.EVSE)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := mirror.New(client, config.EVSE)
	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if config.MetricsAddress != "" {
		server := &http.Server{Addr: config.MetricsAddress}
		http.Handle("/metrics", promhttp.Handler())
		run(func() {
			log.Printf("Serving metrics on %s", config.MetricsAddress)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server stopped: %s", err)
			}
		})
		run(func() {
			<-ctx.Done()
			_ = server.Close()
		})
	}

	mqttClient := mqtt.NewClient(config.MQTT, m)
	if mqttClient.IsEnabled() {
		run(func() { mqttClient.Run(ctx) })
	}

	if config.HomeKit.Enabled {
		bridge := homekit.NewBridge(config.HomeKit, m)
		run(func() {
			if err := bridge.Run(ctx); err != nil {
				log.Printf("Unable to start HomeKit bridge: %s", err)
			}
		})
	}

	m.Run(ctx)
	wg.Wait()
	log.Printf("Stopped")
	return nil
}
