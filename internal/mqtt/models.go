package mqtt

// SensorJSON is a Home Assistant MQTT discovery payload.
type SensorJSON struct {
	UniqueId          string       `json:"unique_id"`
	Name              string       `json:"name"`
	StateTopic        string       `json:"state_topic"`
	CommandTopic      string       `json:"command_topic,omitempty"`
	StateClass        string       `json:"state_class,omitempty"`
	DeviceClass       string       `json:"device_class,omitempty"`
	UnitOfMeasurement string       `json:"unit_of_measurement,omitempty"`
	Device            SensorDevice `json:"device"`
}

type SensorDevice struct {
	Manufacturer string   `json:"manufacturer"`
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
}

type sensor struct {
	field       string
	name        string
	unit        string
	deviceClass string
}

var sensors = []sensor{
	{field: "current_capacity", name: "Current Capacity", unit: "A", deviceClass: "current"},
	{field: "min_current", name: "Minimum Current", unit: "A", deviceClass: "current"},
	{field: "max_current", name: "Maximum Current", unit: "A", deviceClass: "current"},
	{field: "time_limit", name: "Time Limit", unit: "min", deviceClass: "duration"},
	{field: "charge_limit", name: "Charge Limit", unit: "kWh", deviceClass: "energy"},
	{field: "service_level", name: "Service Level"},
	{field: "state", name: "State"},
}

const (
	setSuffix     = "set"
	snapshotTopic = "snapshot"
	statusField   = "status"
	timerField    = "timer"
	timerOff      = "off"
)
