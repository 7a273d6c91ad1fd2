package models

import "time"

// DeviceState is the actuator signal derived from a reading.
type DeviceState string

const (
	DeviceOn  DeviceState = "ON"
	DeviceOff DeviceState = "OFF"
)

// Value maps the state onto the {0,1} axis used by the status chart.
func (s DeviceState) Value() float64 {
	if s == DeviceOn {
		return 1
	}
	return 0
}

// Reading represents a single temperature/humidity sample and the decision taken for it.
type Reading struct {
	Timestamp   time.Time   `json:"timestamp"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
	DeviceState DeviceState `json:"device_state"`
}

// Decision is returned to the posting sensor.
type Decision struct {
	DeviceState DeviceState `json:"device_state"`
}
