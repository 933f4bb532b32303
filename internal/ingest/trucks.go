package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fuelwatch/internal/model"
)

var trucksColumns = []string{"truck_id", "name", "tank_capacity_gal"}

// ParseTrucks reads an optional fleet metadata file:
//
//	truck_id,name,tank_capacity_gal
//	T-104,Kenworth T680,120
//
// Trucks missing from the file fall back to the tracker's default tank
// capacity.
func ParseTrucks(r io.Reader) ([]model.Truck, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < len(trucksColumns) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(trucksColumns), len(header))
	}
	for i, col := range trucksColumns {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}

	var trucks []model.Truck
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(record) < len(trucksColumns) {
			continue
		}

		id := strings.TrimSpace(record[0])
		if id == "" {
			continue
		}

		capacity, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil || capacity <= 0 {
			return nil, fmt.Errorf("line %d: invalid tank_capacity_gal %q", lineNum, record[2])
		}

		trucks = append(trucks, model.Truck{
			ID:              id,
			Name:            strings.TrimSpace(record[1]),
			TankCapacityGal: capacity,
		})
	}

	return trucks, nil
}
