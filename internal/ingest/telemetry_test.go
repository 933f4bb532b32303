package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "truck_id,timestamp,fuel_pct,engine_load_pct,speed_mph,odometer_mi,ambient_temp_f,altitude_ft\n"

func TestTelemetryParser_Parse(t *testing.T) {
	input := header +
		"T-104,2025-03-10T06:00:00Z,71.5,42.0,55.0,183204.1,48.0,820\n" +
		"T-104,2025-03-10T06:05:00Z,71.2,40.0,52.0,183208.6,48.5,870\n"

	parser := &TelemetryParser{}
	rows, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "T-104", rows[0].TruckID)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), rows[0].Timestamp)
	require.NotNil(t, rows[0].FuelPct)
	assert.InDelta(t, 71.5, *rows[0].FuelPct, 0.001)
	require.NotNil(t, rows[0].AltitudeFt)
	assert.InDelta(t, 820, *rows[0].AltitudeFt, 0.001)
}

func TestTelemetryParser_UnavailableFieldsBecomeNil(t *testing.T) {
	input := header +
		"T-104,2025-03-10T06:00:00Z,unavailable,42.0,,183204.1,48.0,820\n"

	parser := &TelemetryParser{}
	rows, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].FuelPct)
	assert.Nil(t, rows[0].SpeedMPH)
	require.NotNil(t, rows[0].EngineLoadPct)
	assert.InDelta(t, 42.0, *rows[0].EngineLoadPct, 0.001)
}

func TestTelemetryParser_SkipsRowsWithBadTimestamp(t *testing.T) {
	input := header +
		"T-104,not-a-time,71.5,42.0,55.0,183204.1,48.0,820\n" +
		"T-104,2025-03-10T06:05:00Z,71.2,40.0,52.0,183208.6,48.5,870\n"

	parser := &TelemetryParser{}
	rows, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 71.2, *rows[0].FuelPct, 0.001)
}

func TestTelemetryParser_InvalidHeader(t *testing.T) {
	input := "vehicle,timestamp,fuel_pct,engine_load_pct,speed_mph,odometer_mi,ambient_temp_f,altitude_ft\n"

	parser := &TelemetryParser{}
	_, err := parser.Parse(strings.NewReader(input))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "truck_id")
}

func TestTelemetryParser_EmptyInput(t *testing.T) {
	parser := &TelemetryParser{}
	_, err := parser.Parse(strings.NewReader(""))
	assert.Error(t, err)
}
