package ingest

import (
	"sort"

	"fuelwatch/internal/model"
)

// movingSpeedMPH is the speed above which a truck counts as moving
// rather than idling at a stop.
const movingSpeedMPH = 1.0

// ToCycles converts time-ordered rows for one truck into measurement
// cycles, computing the elapsed time and altitude delta between
// consecutive rows. Rows are sorted by timestamp first; the first row
// yields a cycle with zero elapsed time so its reading still seeds the
// estimator.
func ToCycles(rows []model.Row) []model.Cycle {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]model.Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	cycles := make([]model.Cycle, 0, len(sorted))
	var prev *model.Row

	for i := range sorted {
		row := sorted[i]

		c := model.Cycle{
			TruckID:       row.TruckID,
			Timestamp:     row.Timestamp,
			EngineLoadPct: row.EngineLoadPct,
			SensorFuelPct: row.FuelPct,
			AmbientTempF:  row.AmbientTempF,
			OdometerMiles: row.OdometerMiles,
		}

		if row.SpeedMPH != nil && *row.SpeedMPH > movingSpeedMPH {
			c.IsMoving = true
			c.Status = model.StatusMoving
		} else if row.EngineLoadPct != nil && *row.EngineLoadPct > 0 {
			c.Status = model.StatusIdling
		} else {
			c.Status = model.StatusStopped
		}

		if prev != nil {
			c.ElapsedSeconds = row.Timestamp.Sub(prev.Timestamp).Seconds()
			if row.AltitudeFt != nil && prev.AltitudeFt != nil {
				delta := *row.AltitudeFt - *prev.AltitudeFt
				c.AltitudeChangeFt = &delta
			}
		}

		cycles = append(cycles, c)
		prev = &sorted[i]
	}

	return cycles
}

// ToDailyReadings extracts the slow-siphon detector's inputs from
// rows: fuel level snapshots with odometer and idle time accrued since
// the previous row (engine on, not moving).
func ToDailyReadings(rows []model.Row) []model.DailyReading {
	cycles := ToCycles(rows)

	var out []model.DailyReading
	var lastStatus model.TruckStatus

	for _, c := range cycles {
		if c.SensorFuelPct == nil || c.OdometerMiles == nil {
			lastStatus = c.Status
			continue
		}

		idleHours := 0.0
		if lastStatus == model.StatusIdling {
			idleHours = c.ElapsedSeconds / 3600.0
		}

		out = append(out, model.DailyReading{
			Timestamp:     c.Timestamp,
			FuelPct:       *c.SensorFuelPct,
			OdometerMiles: *c.OdometerMiles,
			IdleHours:     idleHours,
		})
		lastStatus = c.Status
	}

	return out
}
