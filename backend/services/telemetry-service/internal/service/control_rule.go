package service

import "smarthome/backend/services/telemetry-service/internal/models"

// Fixed actuator thresholds. Readings strictly above either one switch the device on.
const (
	TemperatureThreshold = 29.0
	HumidityThreshold    = 72.0
)

// DecideDeviceState applies the threshold rule to a temperature/humidity pair.
func DecideDeviceState(temperature, humidity float64) models.DeviceState {
	if temperature > TemperatureThreshold || humidity > HumidityThreshold {
		return models.DeviceOn
	}
	return models.DeviceOff
}
