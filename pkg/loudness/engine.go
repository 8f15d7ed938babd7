package loudness

// Reading is the engine's view after one sample.
type Reading struct {
	// Score is the sample's own score.
	Score int

	// Display is the smoothed score for UI feedback.
	Display int

	// Peak is the session peak so far.
	Peak int
}

// Outcome is the final classification of a session.
type Outcome struct {
	Peak    int
	Tier    Tier
	Samples int
}

// Engine applies a [Strategy] to each sample and maintains the session's
// [ScoreState].
type Engine struct {
	strategy Strategy
	state    ScoreState
}

// NewEngine returns an engine using strategy.
func NewEngine(strategy Strategy) *Engine {
	return &Engine{strategy: strategy}
}

// Strategy returns the measurement strategy in use.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Feed scores buf and updates the running state.
func (e *Engine) Feed(buf []byte) Reading {
	score := e.strategy.Score(buf)
	e.state.Update(score)
	return Reading{Score: score, Display: e.state.Display(), Peak: e.state.Peak()}
}

// Result classifies the current peak.
func (e *Engine) Result() Outcome {
	return Outcome{
		Peak:    e.state.Peak(),
		Tier:    Classify(e.state.Peak()),
		Samples: e.state.Samples(),
	}
}

// Reset discards all session state.
func (e *Engine) Reset() { e.state.Reset() }
