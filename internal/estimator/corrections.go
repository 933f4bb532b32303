package estimator

// Diesel expands roughly 0.046% in volume per degree Fahrenheit, so a
// float-style level sender reads high on a hot day and low on a cold
// one. Readings are normalized to the petroleum industry reference
// temperature of 60°F.
const (
	dieselExpansionPerDegF = 0.00046
	referenceTempF         = 60.0
)

// TempCorrectedPct normalizes a raw fuel percentage to 60°F given the
// ambient temperature at the time of the reading.
func TempCorrectedPct(measuredPct, ambientTempF float64) float64 {
	return measuredPct * (1.0 - dieselExpansionPerDegF*(ambientTempF-referenceTempF))
}

// BiodieselFactor returns the multiplicative correction for a biodiesel
// blend percentage: 0.06% shrink per blend point, so B10 yields 0.994.
func BiodieselFactor(blendPct float64) float64 {
	return 1.0 - 0.0006*blendPct
}
