package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"smarthome/backend/services/telemetry-service/internal/models"
)

// WaitingMessage is shown in place of every output while the log is empty.
const WaitingMessage = "Waiting for data..."

const (
	temperatureColor = "orange"
	humidityColor    = "deepskyblue"
	deviceColor      = "limegreen"

	trendWidth   = 800
	trendHeight  = 400
	statusWidth  = 400
	statusHeight = 400
)

// Render builds the two charts and the summary line for the given readings.
// Readings are expected oldest first; the whole slice is plotted.
func Render(readings []models.Reading, now time.Time) models.View {
	if len(readings) == 0 {
		return models.View{
			TemperatureHumidityChart: PlaceholderSVG(trendWidth, trendHeight, WaitingMessage),
			DeviceStateChart:         PlaceholderSVG(statusWidth, statusHeight, WaitingMessage),
			Summary:                  WaitingMessage,
			Empty:                    true,
			RenderedAt:               now,
		}
	}

	temps := make([]Point, len(readings))
	hums := make([]Point, len(readings))
	states := make([]Point, len(readings))
	for i, r := range readings {
		temps[i] = Point{T: r.Timestamp, V: r.Temperature}
		hums[i] = Point{T: r.Timestamp, V: r.Humidity}
		states[i] = Point{T: r.Timestamp, V: r.DeviceState.Value()}
	}

	trend := LineChart{
		ID:     "trend",
		Title:  "Temperature & Humidity Over Time",
		XTitle: "Time",
		YTitle: "Value",
		Width:  trendWidth,
		Height: trendHeight,
		Series: []Series{
			{Name: "Temperature (°C)", Color: temperatureColor, Points: temps},
			{Name: "Humidity (%)", Color: humidityColor, Points: hums},
		},
	}
	status := LineChart{
		ID:     "status",
		Title:  "Device ON/OFF Status",
		XTitle: "Time",
		Width:  statusWidth,
		Height: statusHeight,
		Series: []Series{
			{Name: "Device State", Color: deviceColor, Points: states},
		},
		YTicks: []Tick{
			{Value: 0, Label: string(models.DeviceOff)},
			{Value: 1, Label: string(models.DeviceOn)},
		},
	}

	return models.View{
		TemperatureHumidityChart: trend.SVG(),
		DeviceStateChart:         status.SVG(),
		Summary:                  Summary(readings[len(readings)-1]),
		Count:                    len(readings),
		RenderedAt:               now,
	}
}

// Summary formats a reading as "30°C | 50% | Device: ON".
func Summary(r models.Reading) string {
	return fmt.Sprintf("%s°C | %s%% | Device: %s", formatNumber(r.Temperature), formatNumber(r.Humidity), r.DeviceState)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
