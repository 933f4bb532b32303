package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fuelwatch/internal/detector"
	"fuelwatch/internal/ingest"
	"fuelwatch/internal/store"
)

func main() {
	inputDir := flag.String("input-dir", "input", "directory containing telemetry CSV files")
	tankGal := flag.Float64("tank-gal", 120, "default tank capacity for trucks without metadata")
	assumedMPG := flag.Float64("mpg", 5.7, "assumed fuel economy for expected consumption")
	idleGPH := flag.Float64("idle-gph", 0.8, "gallons per hour burned while idling")
	suspiciousGal := flag.Float64("suspicious-gal", 3.0, "unexplained daily gallons above which a day is flagged")
	minRunDays := flag.Int("min-run-days", 3, "minimum contiguous suspicious days for an alert")
	minTotalGal := flag.Float64("min-total-gal", 10.0, "minimum total unexplained gallons for an alert")
	windowDays := flag.Int("window-days", 7, "how many recent days to examine")
	flag.Parse()

	dataStore := loadAllTelemetry(*inputDir)

	tr, ok := dataStore.GlobalTimeRange()
	if !ok {
		log.Fatal("No telemetry loaded")
	}
	days := tr.End.Sub(tr.Start).Hours() / 24

	cfg := detector.SiphonConfig{
		AssumedMPG:              *assumedMPG,
		IdleGPHRate:             *idleGPH,
		SuspiciousGallonsPerDay: *suspiciousGal,
		MinRunDays:              *minRunDays,
		MinTotalGallons:         *minTotalGal,
		WindowDays:              *windowDays,
	}
	siphon := detector.NewSiphonDetector(cfg)

	fmt.Println()
	fmt.Println("Slow-Siphon Scan")
	fmt.Printf("  Data: %s to %s (%.0f days)\n", tr.Start.Format("2006-01-02"), tr.End.Format("2006-01-02"), days)
	fmt.Printf("  Assumed MPG: %.1f | Idle GPH: %.1f | Daily threshold: %.1f gal\n", cfg.AssumedMPG, cfg.IdleGPHRate, cfg.SuspiciousGallonsPerDay)
	fmt.Println()

	alerts := 0
	for _, truckID := range dataStore.TruckIDs() {
		readings := ingest.ToDailyReadings(dataStore.Rows(truckID))
		capacity := tankCapacity(dataStore, truckID, *tankGal)

		alert := siphon.Analyze(truckID, readings, capacity)
		if alert == nil {
			fmt.Printf("  %-10s  clean (%d daily readings)\n", truckID, len(readings))
			continue
		}

		alerts++
		fmt.Println()
		fmt.Printf("  %-10s  %s  %.1f gal unexplained over %d days (%s to %s), confidence %.0f%%\n",
			alert.TruckID, alert.Recommendation, alert.TotalGallonsLost,
			alert.PeriodDays, alert.StartDate, alert.EndDate, alert.ConfidencePct)
		fmt.Printf("    %-12s %8s %8s %8s %8s %10s\n", "Date", "Start%", "End%", "Miles", "Idle h", "Unexpl gal")
		for _, d := range alert.Days {
			fmt.Printf("    %-12s %8.1f %8.1f %8.1f %8.1f %10.1f\n",
				d.Date, d.StartPct, d.EndPct, d.MilesDriven, d.IdleHours, d.UnexplainedGal)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Printf("  Trucks scanned: %d | Alerts: %d\n", len(dataStore.TruckIDs()), alerts)
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

func tankCapacity(s *store.Store, truckID string, fallback float64) float64 {
	if t, ok := s.Truck(truckID); ok && t.TankCapacityGal > 0 {
		return t.TankCapacityGal
	}
	return fallback
}
