package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"fuelwatch/internal/fleet"
	"fuelwatch/internal/ingest"
	"fuelwatch/internal/model"
	"fuelwatch/internal/replay"
	"fuelwatch/internal/store"
	"fuelwatch/internal/ws"
)

func main() {
	inputDir := flag.String("input-dir", "input", "directory containing telemetry CSV files")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	addr := flag.String("addr", ":8080", "listen address")
	tankGal := flag.Float64("tank-gal", 120, "default tank capacity for trucks without metadata")
	flag.Parse()

	dataStore := store.New()
	if err := loadTelemetry(*inputDir, dataStore); err != nil {
		log.Fatalf("Failed to load telemetry: %v", err)
	}

	tr, ok := dataStore.GlobalTimeRange()
	if !ok {
		log.Fatal("No telemetry loaded")
	}
	log.Printf("Telemetry loaded: %s to %s", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"))

	cfg := fleet.DefaultConfig()
	cfg.DefaultTankCapacityGal = *tankGal
	tracker := fleet.NewTracker(cfg)

	trucks := loadFleetMetadata(*inputDir, dataStore, tracker, *tankGal)
	log.Printf("Tracking %d trucks", len(trucks))

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	engine := replay.New(dataStore, tracker, bridge)
	if !engine.Init() {
		log.Fatal("Failed to initialize replay engine")
	}

	handler := ws.NewHandler(hub, engine, trucks)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", handler)

	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal(err)
	}
}

// loadTelemetry parses every telemetry CSV in dir into the store.
// trucks.csv is fleet metadata, not telemetry, and is skipped here.
func loadTelemetry(dir string, s *store.Store) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading input directory: %w", err)
	}

	parser := &ingest.TelemetryParser{}
	loaded := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") || entry.Name() == "trucks.csv" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		log.Printf("Loading %s...", path)

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}

		rows, err := parser.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		s.AddRows(rows)
		loaded += len(rows)
		log.Printf("  Loaded %d rows from %s", len(rows), entry.Name())
	}

	if loaded == 0 {
		return fmt.Errorf("no telemetry rows found in %s", dir)
	}
	return nil
}

// loadFleetMetadata registers trucks from an optional trucks.csv and
// fills in defaults for trucks that only appear in telemetry.
func loadFleetMetadata(dir string, s *store.Store, tracker *fleet.Tracker, defaultTankGal float64) []model.Truck {
	known := make(map[string]model.Truck)

	path := filepath.Join(dir, "trucks.csv")
	if f, err := os.Open(path); err == nil {
		parsed, err := ingest.ParseTrucks(f)
		f.Close()
		if err != nil {
			log.Printf("Fleet metadata: %v", err)
		}
		for _, t := range parsed {
			known[t.ID] = t
		}
	}

	var trucks []model.Truck
	for _, id := range s.TruckIDs() {
		t, ok := known[id]
		if !ok {
			t = model.Truck{ID: id, Name: id, TankCapacityGal: defaultTankGal}
		}
		s.AddTruck(t)
		tracker.RegisterTruck(t)
		trucks = append(trucks, t)
	}
	return trucks
}
