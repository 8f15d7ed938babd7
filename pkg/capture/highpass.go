package capture

import (
	"fmt"
	"math"
)

// HighPass is a second-order high-pass biquad (RBJ cookbook), processed in
// direct form I. It rejects low-frequency thuds and table bangs below the
// cutoff while passing the voice band.
type HighPass struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

// NewHighPass designs a filter for cutoffHz at sampleRate with quality q.
func NewHighPass(cutoffHz, q float64, sampleRate int) (*HighPass, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("capture: high-pass: sample rate %d must be positive", sampleRate)
	}
	nyquist := float64(sampleRate) / 2
	if cutoffHz <= 0 || cutoffHz >= nyquist {
		return nil, fmt.Errorf("capture: high-pass: cutoff %.1f Hz must be in (0, %.1f)", cutoffHz, nyquist)
	}
	if q <= 0 {
		return nil, fmt.Errorf("capture: high-pass: q %.3f must be positive", q)
	}

	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha

	return &HighPass{
		b0: (1 + cosW0) / 2 / a0,
		b1: -(1 + cosW0) / a0,
		b2: (1 + cosW0) / 2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}, nil
}

// Process filters samples in place.
func (h *HighPass) Process(samples []float64) {
	for i, x := range samples {
		y := h.b0*x + h.b1*h.x1 + h.b2*h.x2 - h.a1*h.y1 - h.a2*h.y2
		h.x2, h.x1 = h.x1, x
		h.y2, h.y1 = h.y1, y
		samples[i] = y
	}
}

// Reset clears the filter history.
func (h *HighPass) Reset() {
	h.x1, h.x2, h.y1, h.y2 = 0, 0, 0, 0
}
