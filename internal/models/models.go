package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	EVSE           EVSEConfiguration    `json:"evse" yaml:"evse"`
	MQTT           MQTTConfiguration    `json:"mqtt" yaml:"mqtt"`
	HomeKit        HomeKitConfiguration `json:"homekit" yaml:"homekit"`
	StatsServer    string               `json:"statsServer" yaml:"statsServer"`
	MetricsAddress string               `json:"metricsAddress" yaml:"metricsAddress"`
	Debug          bool                 `json:"debug" yaml:"debug"`
}

type EVSEConfiguration struct {
	Address            string   `json:"address" yaml:"address"`
	SerialDevice       string   `json:"serialDevice" yaml:"serialDevice"`
	Baud               int      `json:"baud" yaml:"baud"`
	Protocol           string   `json:"protocol" yaml:"protocol"`
	VerifyChecksum     bool     `json:"verifyChecksum" yaml:"verifyChecksum"`
	LegacyFlagCommands bool     `json:"legacyFlagCommands" yaml:"legacyFlagCommands"`
	StandardTimeout    Duration `json:"standardTimeout" yaml:"standardTimeout"`
	ResetTimeout       Duration `json:"resetTimeout" yaml:"resetTimeout"`
	PollInterval       Duration `json:"pollInterval" yaml:"pollInterval"`
	StatusInterval     Duration `json:"statusInterval" yaml:"statusInterval"`
}

type MQTTConfiguration struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Topic    string `json:"topic" yaml:"topic"`
	ClientID string `json:"clientId" yaml:"clientId"`
}

type HomeKitConfiguration struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	BridgeName  string `json:"bridgeName" yaml:"bridgeName"`
	PIN         string `json:"pin" yaml:"pin"`
	Port        string `json:"port" yaml:"port"`
	StoragePath string `json:"storagePath" yaml:"storagePath"`
}

const (
	DefaultStandardTimeout = 500 * time.Millisecond
	DefaultResetTimeout    = 10 * time.Second
	DefaultPollInterval    = time.Minute
	DefaultStatusInterval  = 10 * time.Second
	DefaultBaud            = 115200
	DefaultMQTTPort        = 1883
	DefaultMQTTTopic       = "openevse"
)

// Duration wraps time.Duration so it can be written as "500ms" in config files.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	d.Duration = parsed
	return nil
}

func (m MQTTConfiguration) Enabled() bool {
	return m.Host != ""
}
