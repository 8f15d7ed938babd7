package loudness

import "math"

// Display smoothing weights: display = display*displayKeep + score*displayTake.
const (
	displayKeep = 0.8
	displayTake = 0.2
)

// ScoreState tracks one session's running display value and peak. The
// zero value is ready to use. Not safe for concurrent use; a session updates
// it from a single goroutine.
type ScoreState struct {
	display int
	peak    int
	samples int
}

// Update folds one sample score into the state. The peak never decreases.
// The display value is an exponential moving average used only for UI
// feedback and never feeds back into the peak.
func (s *ScoreState) Update(score int) {
	if score < 0 {
		score = 0
	}
	s.samples++
	if score > s.peak {
		s.peak = score
	}
	s.display = int(math.Floor(float64(s.display)*displayKeep + float64(score)*displayTake))
}

// Display returns the smoothed score.
func (s *ScoreState) Display() int { return s.display }

// Peak returns the highest score seen since the last reset.
func (s *ScoreState) Peak() int { return s.peak }

// Samples returns the number of updates since the last reset.
func (s *ScoreState) Samples() int { return s.samples }

// Reset clears the state for a new session.
func (s *ScoreState) Reset() { *s = ScoreState{} }
