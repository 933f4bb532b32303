package store

import (
	"sort"
	"sync"
	"time"

	"fuelwatch/internal/model"
)

// Store holds telemetry rows in memory, indexed by truck ID. Rows for
// each truck are kept sorted by timestamp.
type Store struct {
	mu     sync.RWMutex
	trucks map[string]model.Truck
	rows   map[string][]model.Row
}

func New() *Store {
	return &Store{
		trucks: make(map[string]model.Truck),
		rows:   make(map[string][]model.Row),
	}
}

// AddTruck registers a truck's metadata.
func (s *Store) AddTruck(truck model.Truck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trucks[truck.ID] = truck
}

// Truck returns a truck's metadata.
func (s *Store) Truck(id string) (model.Truck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trucks[id]
	return t, ok
}

// AddRows adds telemetry rows, then re-sorts each affected truck's rows.
func (s *Store) AddRows(rows []model.Row) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.rows[r.TruckID] = append(s.rows[r.TruckID], r)
	}

	seen := make(map[string]bool)
	for _, r := range rows {
		if !seen[r.TruckID] {
			seen[r.TruckID] = true
			sort.Slice(s.rows[r.TruckID], func(i, j int) bool {
				return s.rows[r.TruckID][i].Timestamp.Before(s.rows[r.TruckID][j].Timestamp)
			})
		}
	}
}

// TruckIDs returns every truck ID with at least one row, sorted.
func (s *Store) TruckIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RowCount returns the number of rows stored for a truck.
func (s *Store) RowCount(truckID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[truckID])
}

// Rows returns a copy of all rows for a truck, oldest first.
func (s *Store) Rows(truckID string) []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.rows[truckID]
	out := make([]model.Row, len(all))
	copy(out, all)
	return out
}

// RowsInRange returns rows for a truck between start (inclusive) and
// end (exclusive).
func (s *Store) RowsInRange(truckID string, start, end time.Time) []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.rows[truckID]
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.Row, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}

// TimeRange returns the time range covered by a truck's rows.
func (s *Store) TimeRange(truckID string) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.rows[truckID]
	if len(rows) == 0 {
		return model.TimeRange{}, false
	}

	return model.TimeRange{
		Start: rows[0].Timestamp,
		End:   rows[len(rows)-1].Timestamp,
	}, true
}

// GlobalTimeRange returns the union of all trucks' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, rows := range s.rows {
		if len(rows) == 0 {
			continue
		}
		rStart := rows[0].Timestamp
		rEnd := rows[len(rows)-1].Timestamp

		if first || rStart.Before(start) {
			start = rStart
		}
		if first || rEnd.After(end) {
			end = rEnd
		}
		first = false
	}

	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}
