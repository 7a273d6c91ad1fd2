package models

import "time"

// View is the output of one dashboard render.
type View struct {
	TemperatureHumidityChart string    `json:"temperature_humidity_chart"`
	DeviceStateChart         string    `json:"device_state_chart"`
	Summary                  string    `json:"summary"`
	Count                    int       `json:"count"`
	Empty                    bool      `json:"empty"`
	RenderedAt               time.Time `json:"rendered_at"`
}
