package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgulick48/evse-rapi/internal/models"
)

var (
	configFile string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "evse-rapi",
	Short: "OpenEVSE RAPI client and device sync",
	Long: `evse-rapi talks to an OpenEVSE charging station over RAPI, either through the
WiFi gateway's HTTP endpoint or directly on the controller's serial port.

It keeps a mirror of the charger settings in sync, publishes it over MQTT,
exposes the charger to HomeKit and serves Prometheus metrics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config.json", "Config file (.json or .yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (models.Config, error) {
	config, err := models.LoadConfig(configFile)
	if err != nil {
		return config, err
	}
	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return config, nil
}
