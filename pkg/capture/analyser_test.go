package capture_test

import (
	"math"
	"testing"

	"github.com/MrWong99/woohoo/pkg/capture"
)

func sine(n int, freq, rate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestNewAnalyser_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		size      int
		smoothing float64
		wantErr   bool
	}{
		{"default", 2048, 0.6, false},
		{"smallest", 32, 0, false},
		{"not power of two", 1000, 0.6, true},
		{"too small", 16, 0.6, true},
		{"too large", 65536, 0.6, true},
		{"smoothing one", 256, 1, true},
		{"negative smoothing", 256, -0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := capture.NewAnalyser(tt.size, tt.smoothing)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.FrequencyBinCount() != tt.size/2 {
				t.Errorf("FrequencyBinCount = %d, want %d", a.FrequencyBinCount(), tt.size/2)
			}
		})
	}
}

func TestAnalyser_TimeDomainBytes(t *testing.T) {
	t.Parallel()

	a, err := capture.NewAnalyser(32, 0)
	if err != nil {
		t.Fatal(err)
	}

	silent := make([]byte, 16)
	a.TimeDomainBytes(silent)
	for i, b := range silent {
		if b != 128 {
			t.Fatalf("silent[%d] = %d, want 128", i, b)
		}
	}

	a.Write([]float64{0.5, -0.5, -1, 1, 1.5, -2})
	got := make([]byte, 6)
	a.TimeDomainBytes(got)
	want := []byte{192, 64, 0, 255, 255, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAnalyser_RingKeepsLatestWindow(t *testing.T) {
	t.Parallel()

	a, err := capture.NewAnalyser(32, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 40 {
		a.Write([]float64{float64(i) / 64})
	}
	got := make([]byte, 32)
	a.TimeDomainBytes(got)
	// Oldest retained sample is index 8.
	if want := byte(math.Floor(128 * (1 + 8.0/64))); got[0] != want {
		t.Errorf("oldest byte = %d, want %d", got[0], want)
	}
	if want := byte(math.Floor(128 * (1 + 39.0/64))); got[31] != want {
		t.Errorf("newest byte = %d, want %d", got[31], want)
	}

	// A write longer than the window keeps only its tail.
	long := make([]float64, 100)
	long[99] = 0.5
	a.Write(long)
	a.TimeDomainBytes(got)
	if got[31] != 192 || got[0] != 128 {
		t.Errorf("after long write: first=%d last=%d, want 128 and 192", got[0], got[31])
	}
}

func TestAnalyser_FrequencyPeakBin(t *testing.T) {
	t.Parallel()

	const (
		size = 256
		rate = 48000.0
		bin  = 16
	)
	a, err := capture.NewAnalyser(size, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Quiet enough that neither the peak nor its neighbours clip at 255.
	a.Write(sine(size, bin*rate/size, rate, 0.1))

	got := make([]byte, a.FrequencyBinCount())
	a.FrequencyBytes(got)

	peak := 0
	for k := range got {
		if got[k] > got[peak] {
			peak = k
		}
	}
	if peak != bin {
		t.Errorf("peak bin = %d, want %d", peak, bin)
	}
	if got[bin] == 0 || got[bin] == 255 {
		t.Errorf("peak magnitude = %d, want within (0, 255)", got[bin])
	}
	if got[100] >= got[bin] {
		t.Errorf("distant bin %d not below peak: %d", got[100], got[bin])
	}
}

func TestAnalyser_FrequencySmoothing(t *testing.T) {
	t.Parallel()

	const size = 256
	a, err := capture.NewAnalyser(size, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	a.Write(sine(size, 3000, 48000, 0.01))
	first := make([]byte, size/2)
	a.FrequencyBytes(first)

	a.Write(make([]float64, size))
	second := make([]byte, size/2)
	a.FrequencyBytes(second)

	if second[16] == 0 || second[16] >= first[16] {
		t.Errorf("smoothed decay: first=%d second=%d, want 0 < second < first", first[16], second[16])
	}

	a.Reset()
	a.FrequencyBytes(second)
	if second[16] != 0 {
		t.Errorf("after Reset bin 16 = %d, want 0", second[16])
	}
}
