package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelwatch/internal/model"
)

var t0 = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

func row(truckID string, ts time.Time) model.Row {
	return model.Row{TruckID: truckID, Timestamp: ts}
}

func TestStore_AddRowsSortsPerTruck(t *testing.T) {
	s := New()
	s.AddRows([]model.Row{
		row("T-1", t0.Add(10*time.Minute)),
		row("T-1", t0),
		row("T-2", t0.Add(5*time.Minute)),
	})

	rows := s.Rows("T-1")
	require.Len(t, rows, 2)
	assert.Equal(t, t0, rows[0].Timestamp)
	assert.Equal(t, t0.Add(10*time.Minute), rows[1].Timestamp)

	assert.Equal(t, []string{"T-1", "T-2"}, s.TruckIDs())
	assert.Equal(t, 2, s.RowCount("T-1"))
	assert.Equal(t, 1, s.RowCount("T-2"))
}

func TestStore_RowsInRange(t *testing.T) {
	s := New()
	s.AddRows([]model.Row{
		row("T-1", t0),
		row("T-1", t0.Add(5*time.Minute)),
		row("T-1", t0.Add(10*time.Minute)),
	})

	// [start, end): the 10-minute row is excluded.
	rows := s.RowsInRange("T-1", t0, t0.Add(10*time.Minute))
	assert.Len(t, rows, 2)

	rows = s.RowsInRange("T-1", t0.Add(time.Minute), t0.Add(2*time.Minute))
	assert.Empty(t, rows)

	rows = s.RowsInRange("T-9", t0, t0.Add(time.Hour))
	assert.Empty(t, rows)
}

func TestStore_TimeRanges(t *testing.T) {
	s := New()

	_, ok := s.GlobalTimeRange()
	assert.False(t, ok)

	s.AddRows([]model.Row{
		row("T-1", t0),
		row("T-1", t0.Add(time.Hour)),
		row("T-2", t0.Add(-time.Hour)),
	})

	tr, ok := s.TimeRange("T-1")
	require.True(t, ok)
	assert.Equal(t, t0, tr.Start)
	assert.Equal(t, t0.Add(time.Hour), tr.End)

	global, ok := s.GlobalTimeRange()
	require.True(t, ok)
	assert.Equal(t, t0.Add(-time.Hour), global.Start)
	assert.Equal(t, t0.Add(time.Hour), global.End)
}

func TestStore_TruckMetadata(t *testing.T) {
	s := New()
	s.AddTruck(model.Truck{ID: "T-1", Name: "Kenworth 104", TankCapacityGal: 150})

	truck, ok := s.Truck("T-1")
	require.True(t, ok)
	assert.InDelta(t, 150, truck.TankCapacityGal, 1e-9)

	_, ok = s.Truck("T-9")
	assert.False(t, ok)
}
