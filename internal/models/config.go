package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jgulick48/evse-rapi/internal/rapi"
)

// LoadConfig reads a JSON or YAML config file, picking the format from the extension.
func LoadConfig(filename string) (Config, error) {
	if filename == "" {
		filename = "./config.json"
	}
	var config Config
	data, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("read config %s: %w", filename, err)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return config, fmt.Errorf("parse config %s: %w", filename, err)
	}
	config.ApplyDefaults()
	return config, config.Validate()
}

func (c *Config) ApplyDefaults() {
	if c.EVSE.StandardTimeout.Duration <= 0 {
		c.EVSE.StandardTimeout.Duration = DefaultStandardTimeout
	}
	if c.EVSE.ResetTimeout.Duration <= 0 {
		c.EVSE.ResetTimeout.Duration = DefaultResetTimeout
	}
	if c.EVSE.PollInterval.Duration <= 0 {
		c.EVSE.PollInterval.Duration = DefaultPollInterval
	}
	if c.EVSE.StatusInterval.Duration <= 0 {
		c.EVSE.StatusInterval.Duration = DefaultStatusInterval
	}
	if c.EVSE.SerialDevice != "" && c.EVSE.Baud == 0 {
		c.EVSE.Baud = DefaultBaud
	}
	if c.MQTT.Enabled() {
		if c.MQTT.Port == 0 {
			c.MQTT.Port = DefaultMQTTPort
		}
		if c.MQTT.Topic == "" {
			c.MQTT.Topic = DefaultMQTTTopic
		}
		if c.MQTT.ClientID == "" {
			c.MQTT.ClientID = "evse_rapi"
		}
	}
	if c.HomeKit.Enabled && c.HomeKit.BridgeName == "" {
		c.HomeKit.BridgeName = "OpenEVSE"
	}
}

func (c Config) Validate() error {
	if c.EVSE.Address == "" && c.EVSE.SerialDevice == "" {
		return errors.New("config: evse.address or evse.serialDevice required")
	}
	if c.EVSE.Address != "" && c.EVSE.SerialDevice != "" {
		return errors.New("config: evse.address and evse.serialDevice are mutually exclusive")
	}
	if _, err := rapi.ParseProtocolVersion(c.EVSE.Protocol); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.EVSE.StatusInterval.Duration > c.EVSE.PollInterval.Duration {
		return errors.New("config: evse.statusInterval must not exceed evse.pollInterval")
	}
	if c.HomeKit.Enabled && len(c.HomeKit.PIN) != 8 {
		return errors.New("config: homekit.pin must be 8 digits")
	}
	return nil
}

// ProtocolVersion returns the configured RAPI dialect. Validate has already rejected bad values.
func (e EVSEConfiguration) ProtocolVersion() rapi.ProtocolVersion {
	version, _ := rapi.ParseProtocolVersion(e.Protocol)
	return version
}
