package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/jgulick48/evse-rapi/internal/mirror"
	"github.com/jgulick48/evse-rapi/internal/models"
	"github.com/jgulick48/evse-rapi/internal/observable"
	"github.com/jgulick48/evse-rapi/internal/openevse"
)

const snapshotInterval = 30 * time.Second

var ErrUnknownTopic = errors.New("unknown command topic")

type Client interface {
	IsEnabled() bool
	Run(ctx context.Context)
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// NewClient publishes mirror values to the broker and applies commands from <topic>/<field>/set.
func NewClient(config models.MQTTConfiguration, m *mirror.Mirror) Client {
	c := &client{
		config:   config,
		mirror:   m,
		messages: make(chan mqtt.Message, 16),
		done:     make(chan struct{}),
	}
	c.publish = c.brokerPublish
	return c
}

type client struct {
	config     models.MQTTConfiguration
	mirror     *mirror.Mirror
	mqttClient mqtt.Client
	messages   chan mqtt.Message
	done       chan struct{}
	publish    func(topic string, retained bool, payload string)
}

func (c *client) IsEnabled() bool {
	return c.config.Enabled()
}

func (c *client) topic(parts ...string) string {
	return strings.Join(append([]string{c.config.Topic}, parts...), "/")
}

// Run connects to the broker and serves until ctx ends.
func (c *client) Run(ctx context.Context) {
	broker := fmt.Sprintf("tcp://%s:%d", c.config.Host, c.config.Port)
	log.Printf("Connecting to %s", broker)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(c.messagePubHandler)
	if c.config.Username != "" && c.config.Password != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}
	opts.OnConnect = c.connectHandler
	opts.OnConnectionLost = connectLostHandler
	c.mqttClient = mqtt.NewClient(opts)
	if token := c.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Error connecting to mqtt broker: %s", token.Error())
	}
	defer c.mqttClient.Disconnect(250)
	defer close(c.done)

	c.watch()
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-c.messages:
			if err := c.HandleMessage(ctx, message.Topic(), message.Payload()); err != nil {
				log.Printf("Unable to apply %s: %s", message.Topic(), err)
			}
		case <-ticker.C:
			c.publishSnapshot()
		}
	}
}

func (c *client) messagePubHandler(client mqtt.Client, msg mqtt.Message) {
	select {
	case c.messages <- msg:
	case <-c.done:
		log.Printf("Dropping message on %s, client is stopping", msg.Topic())
	}
}

func (c *client) connectHandler(client mqtt.Client) {
	log.Println("Connected to mqtt broker")
	topic := c.topic("+", setSuffix)
	token := client.Subscribe(topic, 1, nil)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Error subscribing to %s: %s", topic, token.Error())
		return
	}
	log.Printf("Subscribed to topic: %s", topic)
	c.publishDiscovery()
	c.publishSnapshot()
}

func connectLostHandler(client mqtt.Client, err error) {
	log.Printf("Connect lost: %v", err)
}

func (c *client) brokerPublish(topic string, retained bool, payload string) {
	if c.mqttClient == nil || !c.mqttClient.IsConnected() {
		return
	}
	token := c.mqttClient.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("Error publishing to %s: %s", topic, token.Error())
	}
}

// watch publishes every mirror field whenever it changes.
func (c *client) watch() {
	for name, field := range c.intFields() {
		name := name
		field.Watch(func(value int) { c.publish(c.topic(name), true, strconv.Itoa(value)) })
	}
	for name, field := range c.mirror.SafetyChecks {
		name := name
		field.Watch(func(value bool) { c.publish(c.topic(name), true, strconv.FormatBool(value)) })
	}
	c.mirror.TempCheckSupported.Watch(func(value bool) {
		c.publish(c.topic("temp_check_supported"), true, strconv.FormatBool(value))
	})
	c.mirror.State.Watch(func(state openevse.State) {
		c.publish(c.topic("state"), true, strconv.Itoa(int(state)))
	})
	c.mirror.Timer.Watch(func(window openevse.TimerWindow) {
		payload, _ := json.Marshal(window)
		c.publish(c.topic(timerField), true, string(payload))
	})
}

func (c *client) intFields() map[string]*observable.Field[int] {
	return map[string]*observable.Field[int]{
		"service_level":        c.mirror.ServiceLevel,
		"actual_service_level": c.mirror.ActualServiceLevel,
		"min_current":          c.mirror.MinCurrent,
		"max_current":          c.mirror.MaxCurrent,
		"current_capacity":     c.mirror.CurrentCapacity,
		"time_limit":           c.mirror.TimeLimit,
		"charge_limit":         c.mirror.ChargeLimit,
	}
}

func (c *client) publishSnapshot() {
	payload, err := json.Marshal(c.mirror.Snapshot())
	if err != nil {
		log.Printf("Unable to encode snapshot: %s", err)
		return
	}
	c.publish(c.topic(snapshotTopic), true, string(payload))
}

func (c *client) publishDiscovery() {
	for _, s := range sensors {
		config := SensorJSON{
			UniqueId:          fmt.Sprintf("%s_%s", c.config.ClientID, s.field),
			Name:              s.name,
			StateTopic:        c.topic(s.field),
			DeviceClass:       s.deviceClass,
			UnitOfMeasurement: s.unit,
			Device: SensorDevice{
				Manufacturer: "OpenEVSE",
				Name:         c.config.Topic,
				Identifiers:  []string{c.config.ClientID},
			},
		}
		if s.field != "state" && s.field != "min_current" && s.field != "max_current" {
			config.CommandTopic = c.topic(s.field, setSuffix)
		}
		if s.unit != "" {
			config.StateClass = "measurement"
		}
		payload, err := json.Marshal(config)
		if err != nil {
			continue
		}
		c.publish(fmt.Sprintf("homeassistant/sensor/%s/config", config.UniqueId), true, string(payload))
	}
}

// HandleMessage applies one command published to <topic>/<field>/set.
func (c *client) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	field, ok := c.commandField(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	value := strings.TrimSpace(string(payload))
	switch field {
	case statusField:
		return c.mirror.SetStatus(ctx, openevse.Action(strings.ToLower(value)))
	case timerField:
		if strings.EqualFold(value, timerOff) {
			return c.mirror.StopTimer(ctx)
		}
		window := strings.Fields(value)
		if len(window) != 2 {
			return openevse.ErrInvalidTimerWindow
		}
		return c.mirror.StartTimer(ctx, window[0], window[1])
	}
	if target, ok := c.settableInts()[field]; ok {
		number, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", field, value, err)
		}
		target.Set(number)
		return nil
	}
	if target, ok := c.mirror.SafetyChecks[field]; ok {
		enabled, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", field, value, err)
		}
		target.Set(enabled)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

func (c *client) settableInts() map[string]*observable.Field[int] {
	return map[string]*observable.Field[int]{
		"service_level":    c.mirror.ServiceLevel,
		"current_capacity": c.mirror.CurrentCapacity,
		"time_limit":       c.mirror.TimeLimit,
		"charge_limit":     c.mirror.ChargeLimit,
	}
}

func (c *client) commandField(topic string) (string, bool) {
	prefix := c.config.Topic + "/"
	suffix := "/" + setSuffix
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, suffix) {
		return "", false
	}
	field := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), suffix)
	if field == "" || strings.Contains(field, "/") {
		return "", false
	}
	return field, true
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}
