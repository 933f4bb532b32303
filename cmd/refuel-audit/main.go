package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/fleet"
	"fuelwatch/internal/ingest"
	"fuelwatch/internal/model"
	"fuelwatch/internal/store"
)

type auditEvent struct {
	Timestamp string
	Event     *detector.RefuelEvent
}

func main() {
	inputDir := flag.String("input-dir", "input", "directory containing telemetry CSV files")
	tankGal := flag.Float64("tank-gal", 120, "default tank capacity for trucks without metadata")
	minJumpPct := flag.Float64("min-jump-pct", 10.0, "minimum fuel level jump in percentage points")
	minGallons := flag.Float64("min-gallons", 5.0, "minimum fuel level jump in gallons")
	flag.Parse()

	dataStore := loadAllTelemetry(*inputDir)

	tr, ok := dataStore.GlobalTimeRange()
	if !ok {
		log.Fatal("No telemetry loaded")
	}

	cfg := fleet.DefaultConfig()
	cfg.DefaultTankCapacityGal = *tankGal
	cfg.Refuel = detector.RefuelConfig{MinJumpPct: *minJumpPct, MinGallons: *minGallons}
	tracker := fleet.NewTracker(cfg)

	for _, id := range dataStore.TruckIDs() {
		if t, ok := dataStore.Truck(id); ok {
			tracker.RegisterTruck(t)
		}
	}

	fmt.Println()
	fmt.Println("Refuel Audit")
	fmt.Printf("  Data: %s to %s\n", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))
	fmt.Printf("  Thresholds: %.1f%% and %.1f gal\n", cfg.Refuel.MinJumpPct, cfg.Refuel.MinGallons)
	fmt.Println()

	var merged []model.Cycle
	for _, id := range dataStore.TruckIDs() {
		merged = append(merged, ingest.ToCycles(dataStore.Rows(id))...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	var events []auditEvent
	cyclesProcessed := 0
	readingsRejected := 0

	for _, c := range merged {
		result := tracker.ProcessCycle(c)
		cyclesProcessed++
		if result.Rejected != "" && result.Rejected != "missing" {
			readingsRejected++
		}
		if result.Refuel != nil {
			events = append(events, auditEvent{
				Timestamp: c.Timestamp.Format("2006-01-02 15:04"),
				Event:     result.Refuel,
			})
		}
	}

	if len(events) == 0 {
		fmt.Println("  No refuel events detected.")
	} else {
		fmt.Printf("  %-16s %-10s %7s %7s %8s %8s  %-7s %s\n",
			"Time", "Truck", "From%", "To%", "Jump%", "Gallons", "Method", "Quality")
		for _, e := range events {
			quality := "ok"
			if e.Event.QualitySuspect {
				quality = "suspect (moving)"
			}
			fmt.Printf("  %-16s %-10s %7.1f %7.1f %8.1f %8.1f  %-7s %s\n",
				e.Timestamp, e.Event.TruckID, e.Event.PreviousPct, e.Event.NewPct,
				e.Event.IncreasePct, e.Event.GallonsAdded, e.Event.Method, quality)
		}
	}

	fmt.Println()
	fmt.Printf("  Cycles processed: %d | Invalid readings rejected: %d | Refuels: %d\n",
		cyclesProcessed, readingsRejected, len(events))
}

func loadAllTelemetry(dir string) *store.Store {
	s := store.New()
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Reading input directory: %v", err)
	}

	parser := &ingest.TelemetryParser{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if entry.Name() == "trucks.csv" {
			loadTrucks(path, s)
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Opening %s: %v", path, err)
		}
		rows, err := parser.Parse(f)
		f.Close()
		if err != nil {
			log.Fatalf("Parsing %s: %v", path, err)
		}
		s.AddRows(rows)
	}
	return s
}

func loadTrucks(path string, s *store.Store) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	trucks, err := ingest.ParseTrucks(f)
	if err != nil {
		log.Printf("Fleet metadata: %v", err)
		return
	}
	for _, t := range trucks {
		s.AddTruck(t)
	}
}
