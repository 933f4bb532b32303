// Package ingest parses fleet telemetry CSV exports into structured
// rows and converts ordered rows into estimator cycles.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"fuelwatch/internal/model"
)

// TelemetryParser parses fleet tracking CSV exports.
//
// Expected format:
//
//	truck_id,timestamp,fuel_pct,engine_load_pct,speed_mph,odometer_mi,ambient_temp_f,altitude_ft
//	T-104,2025-03-10T06:00:00Z,71.5,42.0,55.0,183204.1,48.0,820
//
// Numeric fields may be blank or "unavailable" when a sensor dropped
// out; those parse to nil rather than failing the row.
type TelemetryParser struct{}

var telemetryColumns = []string{
	"truck_id", "timestamp", "fuel_pct", "engine_load_pct",
	"speed_mph", "odometer_mi", "ambient_temp_f", "altitude_ft",
}

func (p *TelemetryParser) Parse(r io.Reader) ([]model.Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var rows []model.Row
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		row, err := parseRecord(record, lineNum)
		if err != nil {
			// Rows without a usable id/timestamp are skipped, the rest
			// of the file still loads.
			continue
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func validateHeader(header []string) error {
	if len(header) < len(telemetryColumns) {
		return fmt.Errorf("expected at least %d columns, got %d", len(telemetryColumns), len(header))
	}
	for i, col := range telemetryColumns {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}
	return nil
}

func parseRecord(record []string, lineNum int) (model.Row, error) {
	if len(record) < len(telemetryColumns) {
		return model.Row{}, fmt.Errorf("line %d: expected %d fields, got %d", lineNum, len(telemetryColumns), len(record))
	}

	truckID := strings.TrimSpace(record[0])
	if truckID == "" {
		return model.Row{}, fmt.Errorf("line %d: empty truck_id", lineNum)
	}

	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(record[1]))
	if err != nil {
		return model.Row{}, fmt.Errorf("line %d: parsing timestamp %q: %w", lineNum, record[1], err)
	}

	return model.Row{
		TruckID:       truckID,
		Timestamp:     ts,
		FuelPct:       optionalFloat(record[2]),
		EngineLoadPct: optionalFloat(record[3]),
		SpeedMPH:      optionalFloat(record[4]),
		OdometerMiles: optionalFloat(record[5]),
		AmbientTempF:  optionalFloat(record[6]),
		AltitudeFt:    optionalFloat(record[7]),
	}, nil
}

// optionalFloat parses a numeric field, treating blanks and sentinel
// strings like "unavailable" as missing.
func optionalFloat(field string) *float64 {
	s := strings.TrimSpace(field)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
