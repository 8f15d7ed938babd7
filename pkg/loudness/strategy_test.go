package loudness_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

// filled returns a buffer of n copies of v.
func filled(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

// squareWave alternates between bias+amp and bias-amp, giving an RMS of
// amp/128 exactly.
func squareWave(n int, amp int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = byte(audio.TimeDomainBias + amp)
		} else {
			buf[i] = byte(audio.TimeDomainBias - amp)
		}
	}
	return buf
}

func TestAverageMagnitude_Score(t *testing.T) {
	t.Parallel()
	s := loudness.NewAverageMagnitude()

	tests := []struct {
		name string
		buf  []byte
		want int
	}{
		{"empty", nil, 0},
		{"silent", filled(128, 0), 0},
		{"below base offset", filled(128, 25), 0},                // 245 -> 0
		{"just above base offset", filled(128, 26), 4},           // 254 - 250
		{"mid", filled(128, 100), 730},                           // 980 - 250
		{"full scale clamps to ceiling", filled(128, 255), 2000}, // 2250 -> 2000
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.buf); got != tc.want {
				t.Errorf("Score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAverageMagnitude_AlwaysWithinBounds(t *testing.T) {
	t.Parallel()
	s := loudness.NewAverageMagnitude()
	for v := 0; v <= 255; v++ {
		got := s.Score(filled(64, byte(v)))
		if got < 0 || got > s.MaxScore() {
			t.Fatalf("Score(all %d) = %d, outside [0, %d]", v, got, s.MaxScore())
		}
	}
	if s.MaxScore() != 2000 {
		t.Errorf("MaxScore = %d, want 2000", s.MaxScore())
	}
}

func TestRMSCurve_SilentAndEmptyScoreZero(t *testing.T) {
	t.Parallel()
	s := loudness.NewRMSCurve()
	if got := s.Score(nil); got != 0 {
		t.Errorf("Score(nil) = %d, want 0", got)
	}
	if got := s.Score(filled(1024, audio.TimeDomainBias)); got != 0 {
		t.Errorf("Score(silence) = %d, want 0", got)
	}
	if got := s.ScoreRMS(math.NaN()); got != 0 {
		t.Errorf("ScoreRMS(NaN) = %d, want 0", got)
	}
}

func TestRMSCurve_FullScaleExceedsVisualMax(t *testing.T) {
	t.Parallel()
	s := loudness.NewRMSCurve()
	// A buffer pinned at the negative rail has rms exactly 1.
	if got := s.Score(filled(2048, 0)); got != 2555 {
		t.Errorf("Score(rms 1.0) = %d, want 2555", got)
	}
	// Anything at or above the 0.9 ceiling saturates the curve.
	if got := s.ScoreRMS(0.95); got != 2555 {
		t.Errorf("ScoreRMS(0.95) = %d, want 2555", got)
	}
	if s.MaxScore() != 2555 {
		t.Errorf("MaxScore = %d, want 2555", s.MaxScore())
	}
}

func TestRMSCurve_Curve(t *testing.T) {
	t.Parallel()
	s := loudness.NewRMSCurve()

	// amp 64 -> rms 0.5 -> normalized 0.5/0.9.
	want := int(math.Floor(555 + math.Pow(0.5/0.9, 2.5)*2000))
	if got := s.Score(squareWave(2048, 64)); got != want {
		t.Errorf("Score(rms 0.5) = %d, want %d", got, want)
	}

	// The curve is monotonic in amplitude.
	prev := 0
	for amp := 1; amp <= 127; amp++ {
		got := s.Score(squareWave(256, amp))
		if got < prev {
			t.Fatalf("Score decreased at amp %d: %d < %d", amp, got, prev)
		}
		if got < 555 || got > 2555 {
			t.Fatalf("Score(amp %d) = %d, outside [555, 2555]", amp, got)
		}
		prev = got
	}
}

func TestStrategyByName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		wantName   string
		wantDomain audio.Domain
		wantErr    bool
	}{
		{"", loudness.StrategyRMS, audio.DomainTime, false},
		{"rms", loudness.StrategyRMS, audio.DomainTime, false},
		{"average", loudness.StrategyAverage, audio.DomainFrequency, false},
		{"fft", "", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := loudness.StrategyByName(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Name() != tc.wantName || s.Domain() != tc.wantDomain {
				t.Errorf("got %s/%s, want %s/%s", s.Name(), s.Domain(), tc.wantName, tc.wantDomain)
			}
		})
	}
}
