package estimator

import "math"

// innovationCap is the number of recent residuals kept for bias
// discrimination. Four same-sign entries are needed to call a bias, so
// the window holds one extra for context.
const innovationCap = 5

// biasRunLen is how many consecutive same-sign innovations, each above
// biasFloor in magnitude, declare a persistent sensor bias.
const (
	biasRunLen = 4
	biasFloor  = 1.0
)

// innovationWindow is a fixed-capacity ring buffer of measurement
// residuals, oldest evicted first.
type innovationWindow struct {
	buf  [innovationCap]float64
	head int // next write position
	n    int
}

func (w *innovationWindow) push(v float64) {
	w.buf[w.head] = v
	w.head = (w.head + 1) % innovationCap
	if w.n < innovationCap {
		w.n++
	}
}

func (w *innovationWindow) len() int { return w.n }

// values returns the stored innovations oldest first.
func (w *innovationWindow) values() []float64 {
	out := make([]float64, 0, w.n)
	start := (w.head - w.n + innovationCap) % innovationCap
	for i := 0; i < w.n; i++ {
		out = append(out, w.buf[(start+i)%innovationCap])
	}
	return out
}

// adaptiveNoise derives the effective measurement variance from the
// recent innovation pattern.
//
// Four consecutive same-sign residuals above the floor mean the sensor
// itself has drifted (sloshing bias, electrical offset) rather than
// produced random noise, so the filter is told to trust it much less
// across the board. Anything else scales trust with the size of the
// latest residual alone: a single spike is distrusted in proportion to
// its size, not taken as evidence of drift.
func adaptiveNoise(w *innovationWindow, baseNoise float64) (r float64, biasDetected bool, biasMagnitude float64) {
	vals := w.values()

	if len(vals) >= biasRunLen {
		last := vals[len(vals)-biasRunLen:]
		allPos, allNeg, allLarge := true, true, true
		sum := 0.0
		for _, v := range last {
			if v <= 0 {
				allPos = false
			}
			if v >= 0 {
				allNeg = false
			}
			if math.Abs(v) <= biasFloor {
				allLarge = false
			}
			sum += v
		}
		if allLarge && (allPos || allNeg) {
			return baseNoise * 2.5, true, sum / float64(biasRunLen)
		}
	}

	if len(vals) == 0 {
		return baseNoise, false, 0
	}

	switch latest := math.Abs(vals[len(vals)-1]); {
	case latest < 2.0:
		return baseNoise * 0.7, false, 0
	case latest < 5.0:
		return baseNoise, false, 0
	case latest < 10.0:
		return baseNoise * 1.5, false, 0
	default:
		return baseNoise * 2.5, false, 0
	}
}
