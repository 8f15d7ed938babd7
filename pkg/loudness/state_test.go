package loudness_test

import (
	"testing"

	"github.com/MrWong99/woohoo/pkg/loudness"
)

func TestScoreState_PeakIsMonotonic(t *testing.T) {
	t.Parallel()
	var s loudness.ScoreState
	prev := 0
	for i, score := range []int{100, 300, 350, 600, 200, 850, 400, 1200, 0, 500} {
		s.Update(score)
		if s.Peak() < prev {
			t.Fatalf("peak decreased at sample %d: %d < %d", i, s.Peak(), prev)
		}
		prev = s.Peak()
	}
	if s.Peak() != 1200 {
		t.Errorf("Peak = %d, want 1200", s.Peak())
	}
	if s.Samples() != 10 {
		t.Errorf("Samples = %d, want 10", s.Samples())
	}
}

func TestScoreState_DisplaySmoothing(t *testing.T) {
	t.Parallel()
	var s loudness.ScoreState
	s.Update(1000)
	if s.Display() != 200 {
		t.Errorf("Display after 1000 = %d, want 200", s.Display())
	}
	s.Update(1000)
	if s.Display() != 360 {
		t.Errorf("Display after 2x1000 = %d, want 360", s.Display())
	}
	s.Update(0)
	if s.Display() != 288 {
		t.Errorf("Display after decay = %d, want 288", s.Display())
	}
	if s.Peak() != 1000 {
		t.Errorf("Peak = %d, want 1000 (display must not feed peak)", s.Peak())
	}
}

func TestScoreState_NegativeIgnored(t *testing.T) {
	t.Parallel()
	var s loudness.ScoreState
	s.Update(-50)
	if s.Peak() != 0 || s.Display() != 0 {
		t.Errorf("got peak=%d display=%d, want 0/0", s.Peak(), s.Display())
	}
}

func TestScoreState_Reset(t *testing.T) {
	t.Parallel()
	var s loudness.ScoreState
	s.Update(900)
	s.Reset()
	if s.Peak() != 0 || s.Display() != 0 || s.Samples() != 0 {
		t.Errorf("state not cleared: peak=%d display=%d samples=%d", s.Peak(), s.Display(), s.Samples())
	}
}

// constStrategy scores every buffer as its first byte times ten, which lets
// tests feed exact scores through an Engine.
type constStrategy struct{ loudness.AverageMagnitude }

func (constStrategy) Score(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	return int(buf[0]) * 10
}

func TestEngine_EndToEndSequence(t *testing.T) {
	t.Parallel()
	e := loudness.NewEngine(constStrategy{})
	for _, score := range []int{100, 300, 350, 600, 200, 850, 400, 1200, 0, 500} {
		e.Feed([]byte{byte(score / 10)})
	}
	out := e.Result()
	if out.Peak != 1200 {
		t.Errorf("Peak = %d, want 1200", out.Peak)
	}
	if out.Tier != loudness.Tier7Day {
		t.Errorf("Tier = %s, want 7_day", out.Tier)
	}
	if out.Samples != 10 {
		t.Errorf("Samples = %d, want 10", out.Samples)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	t.Parallel()
	run := func() loudness.Outcome {
		e := loudness.NewEngine(loudness.NewRMSCurve())
		for amp := 0; amp < 100; amp += 7 {
			e.Feed(squareWave(512, amp))
		}
		return e.Result()
	}
	a, b := run(), run()
	if a != b {
		t.Errorf("outcomes differ: %+v vs %+v", a, b)
	}
}

func TestEngine_FeedReading(t *testing.T) {
	t.Parallel()
	e := loudness.NewEngine(loudness.NewAverageMagnitude())
	r := e.Feed(filled(16, 100))
	if r.Score != 730 || r.Peak != 730 || r.Display != 146 {
		t.Errorf("reading = %+v, want score 730 peak 730 display 146", r)
	}
	r = e.Feed(nil)
	if r.Score != 0 || r.Peak != 730 {
		t.Errorf("reading after empty buffer = %+v", r)
	}
	e.Reset()
	if e.Result().Peak != 0 {
		t.Error("Reset did not clear peak")
	}
}

func TestUIPercent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw, max int
		want     float64
	}{
		{0, 1300, 0},
		{650, 1300, 50},
		{2555, 1300, 100},
		{-10, 1300, 0},
		{100, 0, 0},
	}
	for _, tc := range tests {
		if got := loudness.UIPercent(tc.raw, tc.max); got != tc.want {
			t.Errorf("UIPercent(%d, %d) = %v, want %v", tc.raw, tc.max, got, tc.want)
		}
	}
}
