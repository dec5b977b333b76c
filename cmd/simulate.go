package cmd

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgulick48/evse-rapi/internal/rapi"
	"github.com/jgulick48/evse-rapi/internal/simulator"
)

var (
	listenAddress  string
	simProtocol    string
	simLegacyFlags bool
	simNoRTC       bool
	simVehicle     uint8
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve a simulated OpenEVSE WiFi gateway",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&listenAddress, "listen", "l", ":3000", "Address to listen on")
	simulateCmd.Flags().StringVar(&simProtocol, "protocol", "checksummed", "RAPI protocol (legacy or checksummed)")
	simulateCmd.Flags().BoolVar(&simLegacyFlags, "legacy-flags", false, "Reject $FF and accept the single verb safety toggles")
	simulateCmd.Flags().BoolVar(&simNoRTC, "no-rtc", false, "Report the clock as missing")
	simulateCmd.Flags().Uint8Var(&simVehicle, "vehicle", 1, "J1772 state reported while enabled (1, 2 or 3)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	protocol, err := rapi.ParseProtocolVersion(simProtocol)
	if err != nil {
		return err
	}
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	device := simulator.New(simulator.Options{
		Protocol:           protocol,
		LegacyFlagCommands: simLegacyFlags,
		NoRTC:              simNoRTC,
		VehicleState:       simVehicle,
	})
	log.Printf("OpenEVSE simulator listening on %s", listenAddress)
	return device.Router().Run(listenAddress)
}
