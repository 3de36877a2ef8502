package imaging

import "math"

// DefaultBeta is the size fitter exponent used when none is configured.
//
// Encoded size grows roughly with pixel count, which would suggest 0.5. The
// lower exponent shrinks harder to absorb fixed per-image overhead and the
// encoder not scaling linearly with resolution.
const DefaultBeta = 0.6

// minScale is returned for a non-positive budget; FitDimensions then clamps
// the result to 1x1.
const minScale = 1e-6

// ScaleFactor returns the linear scale factor s in (0, 1] that should bring
// an encoded image of size bytes close to budget bytes in a single resize.
//
//	size <= budget  -> 1
//	otherwise       -> min(1, (budget/size)^beta)
//
// The result is a one-shot estimate: re-encoding at the scaled size may still
// overshoot the budget slightly. A beta <= 0 (or NaN) selects DefaultBeta.
func ScaleFactor(size, budget int64, beta float64) float64 {
	if size <= budget || size <= 0 {
		return 1
	}
	if budget <= 0 {
		return minScale
	}
	if !(beta > 0) {
		beta = DefaultBeta
	}

	ratio := float64(budget) / float64(size)
	s := math.Pow(ratio, beta)
	if s > 1 {
		return 1
	}
	if s < minScale || math.IsNaN(s) {
		return minScale
	}
	return s
}

// FitDimensions applies scale s to width and height, flooring to whole
// pixels. Each dimension is at least 1.
func FitDimensions(width, height int, s float64) (int, int) {
	w := int(math.Floor(float64(width) * s))
	h := int(math.Floor(float64(height) * s))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
