package cmd

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/openevse"
)

// openClient builds a RAPI client over the serial port when one is configured and over
// the gateway's HTTP endpoint otherwise. The returned closer releases the transport.
func openClient(config models.EVSEConfiguration) (*openevse.Client, io.Closer, error) {
	if config.SerialDevice != "" {
		transport, err := openevse.OpenSerialTransport(config.SerialDevice, config.Baud)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using serial port %s at %d baud", config.SerialDevice, config.Baud)
		return openevse.NewClient(config, transport), transport, nil
	}
	log.Printf("Using RAPI gateway %s", config.Address)
	transport := openevse.NewHTTPTransport(&http.Client{})
	return openevse.NewClient(config, transport), io.NopCloser(nil), nil
}
