package simulator

import (
	"bufio"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

const noCache = "no-cache, private, no-store, must-revalidate, max-stale=0, post-check=0, pre-check=0"

// Router exposes the device the way the WiFi gateway does.
func (d *Device) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), func(c *gin.Context) {
		c.Header("Cache-Control", noCache)
		c.Next()
	})
	router.GET("/r", d.RapiGet())
	router.GET("/status", d.StatusGet())
	router.GET("/config", d.ConfigGet())
	return router
}

func (d *Device) RapiGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		wire, ok := c.GetQuery("rapi")
		if !ok || wire == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing rapi parameter"})
			return
		}
		ret := d.Handle(wire)
		log.WithField("command", wire).Debugf("Simulator replied %s", ret)
		c.JSON(http.StatusOK, rapi.CommandResult{CMD: wire, RET: ret})
	}
}

func (d *Device) StatusGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Status())
	}
}

func (d *Device) ConfigGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Config())
	}
}

// ServeLines answers carriage return terminated commands read from rw, as the
// controller does on its serial port. It returns when rw is closed.
func (d *Device) ServeLines(rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	scanner.Split(scanCommands)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := io.WriteString(rw, d.Handle(line)+"\r"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func scanCommands(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if b == '\r' || b == '\n' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
