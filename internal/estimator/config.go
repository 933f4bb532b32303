package estimator

// Config holds the calibration parameters for one truck's fuel model.
// Values are per-fleet calibration outputs; the estimator does not load
// them from anywhere itself.
type Config struct {
	// BaselineRatePctPerMin is the consumption rate at zero engine load
	// while moving, in percent of tank per minute.
	BaselineRatePctPerMin float64
	// LoadFactor adds consumption per point of engine load percent.
	LoadFactor float64
	// AltitudeFactor adds consumption per foot-per-minute of climb.
	AltitudeFactor float64
	// IdleRatePctPerMin is the flat consumption rate while not moving.
	IdleRatePctPerMin float64

	// ProcessNoiseFuel and ProcessNoiseRate are the diagonal of the base
	// process-noise matrix Q (percent² and (percent/min)²).
	ProcessNoiseFuel float64
	ProcessNoiseRate float64
	// MeasurementNoise is the base sensor variance R before adaptive scaling.
	MeasurementNoise float64

	// BiodieselBlendPct shrinks every reading by 0.06% per blend point
	// to account for the density difference of biodiesel blends.
	BiodieselBlendPct float64
}

// DefaultConfig returns conservative placeholder calibration. An
// estimator built from it reports Calibrated=false so consumers can
// tell a rough default-parameter guess from a tuned estimate.
func DefaultConfig() Config {
	return Config{
		BaselineRatePctPerMin: 0.05,
		LoadFactor:            0.0015,
		AltitudeFactor:        0.0001,
		IdleRatePctPerMin:     0.02,
		ProcessNoiseFuel:      0.01,
		ProcessNoiseRate:      0.001,
		MeasurementNoise:      4.0,
	}
}
