package cmd

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgulick48/evse-rapi/internal/rapi"
	"github.com/jgulick48/evse-rapi/internal/simulator"
)

func TestRapiCommand(t *testing.T) {
	gin.SetMode(gin.TestMode)
	device := simulator.New(simulator.Options{Protocol: rapi.ProtocolChecksummed})
	server := httptest.NewServer(device.Router())
	defer server.Close()

	configPath := filepath.Join(t.TempDir(), "config.json")
	config := fmt.Sprintf(`{"evse": {"address": "%s/r", "protocol": "checksummed", "verifyChecksum": true}}`, server.URL)
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", configPath, "rapi", "GE"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "OK 32 0021\n", out.String())
	assert.Equal(t, []string{"$GE^26"}, device.Received())
}
