package estimator

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RejectReason tells the caller why an Update left the state untouched.
// Bad readings are an expected, recoverable condition in fleet
// telemetry, never an error.
type RejectReason string

const (
	RejectNone       RejectReason = ""
	RejectMissing    RejectReason = "missing"
	RejectNotFinite  RejectReason = "not_finite"
	RejectOutOfRange RejectReason = "out_of_range"
)

// rateSmoothing blends the freshly computed consumption rate into the
// rate state instead of overwriting it, damping oscillation from noisy
// load readings.
const rateSmoothing = 0.7

// sMin keeps the innovation covariance away from zero so the gain
// division can never blow up with degenerate noise settings.
const sMin = 1e-6

// Estimate is the outbound contract after each predict/update cycle.
type Estimate struct {
	FuelPct                  float64 `json:"fuel_pct"`
	ConsumptionRatePctPerMin float64 `json:"consumption_rate_pct_per_min"`
	// Uncertainty is the standard deviation of the fuel estimate (sqrt
	// of the fuel variance).
	Uncertainty   float64 `json:"uncertainty"`
	ConfidencePct float64 `json:"confidence_pct"`

	BiasDetected     bool    `json:"bias_detected"`
	BiasMagnitudePct float64 `json:"bias_magnitude_pct"`
	// Calibrated is false when the estimator runs on built-in default
	// parameters rather than fleet calibration.
	Calibrated bool `json:"calibrated"`
}

// FuelEstimator fuses a physical consumption model with noisy level
// sender readings for a single truck. It is not safe for concurrent
// use: one truck's estimator must only be driven from one goroutine
// at a time, though independent trucks' estimators share nothing.
type FuelEstimator struct {
	cfg        Config
	calibrated bool

	fuelPct       float64
	ratePctPerMin float64
	cov           *mat.Dense // 2×2 over (fuelPct, ratePctPerMin)

	innovations innovationWindow

	biasDetected  bool
	biasMagnitude float64

	biodieselFactor float64
}

// New builds an estimator starting from an initial fuel percentage.
// A nil cfg selects DefaultConfig and marks the estimator uncalibrated.
func New(initialFuelPct float64, cfg *Config) *FuelEstimator {
	e := &FuelEstimator{
		calibrated:    cfg != nil,
		fuelPct:       clampPct(initialFuelPct),
		ratePctPerMin: 0,
		cov:           mat.NewDense(2, 2, []float64{25.0, 0, 0, 0.01}),
	}
	if cfg != nil {
		e.cfg = *cfg
	} else {
		e.cfg = DefaultConfig()
	}
	e.ratePctPerMin = e.cfg.IdleRatePctPerMin
	e.biodieselFactor = BiodieselFactor(e.cfg.BiodieselBlendPct)
	return e
}

// Predict advances the state by the elapsed time using the physical
// consumption model. It always succeeds.
func (e *FuelEstimator) Predict(dtSeconds, engineLoadPct, altitudeChangeFt float64, isMoving bool) Estimate {
	dtMin := dtSeconds / 60.0
	if dtMin <= 0 {
		return e.Estimate()
	}

	rate := e.cfg.IdleRatePctPerMin
	if isMoving {
		rate = e.cfg.BaselineRatePctPerMin +
			e.cfg.LoadFactor*engineLoadPct +
			e.cfg.AltitudeFactor*(altitudeChangeFt/dtMin)
	}
	if rate < 0 {
		rate = 0
	}

	e.fuelPct = clampPct(e.fuelPct - rate*dtMin)
	e.ratePctPerMin = rateSmoothing*rate + (1-rateSmoothing)*e.ratePctPerMin

	// P' = F·P·Fᵀ + Q, with Q inflated under load while moving because
	// consumption-rate uncertainty grows with load variability.
	f := mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1 - rateSmoothing,
	})
	qScale := 1.0
	if isMoving {
		qScale = 1.0 + engineLoadPct/100.0
	}
	q := mat.NewDense(2, 2, []float64{
		e.cfg.ProcessNoiseFuel * qScale, 0,
		0, e.cfg.ProcessNoiseRate * qScale,
	})

	var fp, fpf mat.Dense
	fp.Mul(f, e.cov)
	fpf.Mul(&fp, f.T())
	fpf.Add(&fpf, q)
	e.cov.Copy(&fpf)

	return e.Estimate()
}

// Update fuses one sensor reading. Readings that are missing, not
// finite, or outside the physical range after correction are logged
// and skipped, leaving the state exactly as it was.
func (e *FuelEstimator) Update(measuredPct, ambientTempF *float64) (Estimate, RejectReason) {
	if measuredPct == nil {
		return e.Estimate(), RejectMissing
	}
	raw := *measuredPct
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		log.Printf("estimator: dropping non-finite fuel reading %v", raw)
		return e.Estimate(), RejectNotFinite
	}

	corrected := clampPct(raw)
	if ambientTempF != nil {
		corrected = TempCorrectedPct(corrected, *ambientTempF)
	}
	corrected *= e.biodieselFactor

	// Corrections can legitimately overshoot 100 a little; anything
	// beyond that is not a physical fuel level.
	if corrected < 0 || corrected > 105 {
		log.Printf("estimator: corrected reading %.2f%% outside physical range, skipping", corrected)
		return e.Estimate(), RejectOutOfRange
	}

	innovation := corrected - e.fuelPct
	e.innovations.push(innovation)

	r, biased, magnitude := adaptiveNoise(&e.innovations, e.cfg.MeasurementNoise)
	e.biasDetected = biased
	e.biasMagnitude = magnitude

	// Scalar Kalman update with H = [1, 0]: only the fuel level is
	// observed directly.
	s := e.cov.At(0, 0) + r
	if s < sMin {
		s = sMin
	}
	k0 := e.cov.At(0, 0) / s
	k1 := e.cov.At(1, 0) / s

	e.fuelPct = clampPct(e.fuelPct + k0*innovation)
	e.ratePctPerMin += k1 * innovation

	// P = (I − K·H)·P
	imkh := mat.NewDense(2, 2, []float64{
		1 - k0, 0,
		-k1, 1,
	})
	var p mat.Dense
	p.Mul(imkh, e.cov)
	e.cov.Copy(&p)

	return e.Estimate(), RejectNone
}

// Estimate reports the current state without mutating it.
func (e *FuelEstimator) Estimate() Estimate {
	uncertainty := math.Sqrt(math.Max(e.cov.At(0, 0), 0))
	confidence := 100.0 - 10.0*uncertainty
	if confidence < 0 {
		confidence = 0
	}
	return Estimate{
		FuelPct:                  e.fuelPct,
		ConsumptionRatePctPerMin: e.ratePctPerMin,
		Uncertainty:              uncertainty,
		ConfidencePct:            confidence,
		BiasDetected:             e.biasDetected,
		BiasMagnitudePct:         e.biasMagnitude,
		Calibrated:               e.calibrated,
	}
}

// FuelVariance exposes the fuel-level variance (P[0][0]).
func (e *FuelEstimator) FuelVariance() float64 { return e.cov.At(0, 0) }

// RateVariance exposes the consumption-rate variance (P[1][1]).
func (e *FuelEstimator) RateVariance() float64 { return e.cov.At(1, 1) }

// BiodieselCorrectionFactor returns the multiplicative factor applied
// to every reading, fixed at construction from the blend percentage.
func (e *FuelEstimator) BiodieselCorrectionFactor() float64 { return e.biodieselFactor }

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
