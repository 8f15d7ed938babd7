// Package loudness converts analyser snapshots into the gamified scream
// score, keeps the session peak, and classifies the peak into a reward tier.
//
// Two measurement strategies exist and are not numerically equivalent:
//
//   - [AverageMagnitude] averages frequency-bin magnitudes and maps them
//     linearly onto 0..2000 after a fixed base offset.
//   - [RMSCurve] computes RMS over the time-domain buffer and shapes it with a
//     power curve on top of a base score, so low scores are easy to reach and
//     high scores disproportionately hard.
//
// Everything in this package is deterministic: identical sample sequences
// produce identical scores, peaks, and tiers.
package loudness

import (
	"fmt"
	"math"

	"github.com/MrWong99/woohoo/pkg/audio"
)

// Strategy measures a single analyser snapshot and returns its score.
// Implementations must not panic on empty or malformed buffers.
type Strategy interface {
	// Name is the configuration name of the strategy.
	Name() string

	// Domain is the analyser representation the strategy expects.
	Domain() audio.Domain

	// Score converts buf into a non-negative integer score.
	Score(buf []byte) int

	// MaxScore is the largest score Score can return.
	MaxScore() int
}

// Strategy names accepted by [StrategyByName].
const (
	StrategyAverage = "average"
	StrategyRMS     = "rms"
)

// StrategyByName returns the default-tuned strategy registered under name.
// An empty name selects [StrategyRMS].
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyRMS:
		return NewRMSCurve(), nil
	case StrategyAverage:
		return NewAverageMagnitude(), nil
	default:
		return nil, fmt.Errorf("loudness: unknown strategy %q; valid values: %s, %s", name, StrategyAverage, StrategyRMS)
	}
}

// AverageMagnitude is the coarse strategy: the mean of all frequency-bin
// magnitudes (each 0..255) is scaled to FullScale, reduced by BaseOffset,
// and clamped to [0, Ceiling].
type AverageMagnitude struct {
	FullScale  float64
	BaseOffset int
	Ceiling    int
}

// NewAverageMagnitude returns the strategy with FullScale 2500, BaseOffset
// 250 and Ceiling 2000.
func NewAverageMagnitude() AverageMagnitude {
	return AverageMagnitude{FullScale: 2500, BaseOffset: 250, Ceiling: 2000}
}

// Name implements [Strategy].
func (AverageMagnitude) Name() string { return StrategyAverage }

// Domain implements [Strategy].
func (AverageMagnitude) Domain() audio.Domain { return audio.DomainFrequency }

// MaxScore implements [Strategy].
func (s AverageMagnitude) MaxScore() int { return s.Ceiling }

// Score implements [Strategy].
func (s AverageMagnitude) Score(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	var sum int
	for _, b := range buf {
		sum += int(b)
	}
	average := float64(sum) / float64(len(buf))

	raw := int(math.Floor(average / 255 * s.FullScale))
	adjusted := max(0, raw-s.BaseOffset)
	return min(s.Ceiling, adjusted)
}

// RMSCurve is the refined strategy. The RMS of the time-domain buffer is
// normalised against Ceiling (clamped to 1) and shaped as
//
//	BaseScore + normalized^Exponent * ScoringMax
//
// The Exponent sets the difficulty curve. A buffer with no signal at all
// scores 0 rather than BaseScore.
type RMSCurve struct {
	Ceiling    float64
	BaseScore  float64
	ScoringMax float64
	Exponent   float64
}

// NewRMSCurve returns the strategy with Ceiling 0.9, BaseScore 555,
// ScoringMax 2000 and Exponent 2.5.
func NewRMSCurve() RMSCurve {
	return RMSCurve{Ceiling: 0.9, BaseScore: 555, ScoringMax: 2000, Exponent: 2.5}
}

// Name implements [Strategy].
func (RMSCurve) Name() string { return StrategyRMS }

// Domain implements [Strategy].
func (RMSCurve) Domain() audio.Domain { return audio.DomainTime }

// Score implements [Strategy].
func (s RMSCurve) Score(buf []byte) int {
	return s.ScoreRMS(RMS(buf))
}

// ScoreRMS applies the curve to an already computed RMS value. Values that
// are zero, negative, or NaN score 0.
func (s RMSCurve) ScoreRMS(rms float64) int {
	if !(rms > 0) {
		return 0
	}
	normalized := 1.0
	if s.Ceiling > 0 {
		normalized = math.Min(rms/s.Ceiling, 1)
	}
	return int(math.Floor(s.BaseScore + math.Pow(normalized, s.Exponent)*s.ScoringMax))
}

// MaxScore implements [Strategy].
func (s RMSCurve) MaxScore() int {
	return int(math.Floor(s.BaseScore + s.ScoringMax))
}
