package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

func TestNewModel_DefaultsDisplayMax(t *testing.T) {
	m := NewModel(0, nil)
	if m.displayMax != challenge.DefaultDisplayMax {
		t.Errorf("displayMax = %d, want %d", m.displayMax, challenge.DefaultDisplayMax)
	}
	if m.width != DefaultWidth {
		t.Errorf("width = %d, want %d", m.width, DefaultWidth)
	}
}

func TestModel_LiveUpdates(t *testing.T) {
	m := NewModel(1300, nil)

	if !strings.Contains(m.View(), "Waiting for the microphone") {
		t.Error("expected waiting screen before start")
	}

	m.Update(StartedMsg("s1"))
	m.Update(CountdownMsg(7))
	m.Update(ReadingMsg{Score: 900, Display: 700, Peak: 950})

	if m.remaining != 7 {
		t.Errorf("remaining = %d, want 7", m.remaining)
	}
	if m.reading.Peak != 950 {
		t.Errorf("peak = %d, want 950", m.reading.Peak)
	}
	view := m.View()
	for _, want := range []string{" 7s", "Peak  950", "5 Day Pass"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_ResultQuits(t *testing.T) {
	m := NewModel(1300, nil)
	res := challenge.Result{Peak: 1250, Tier: loudness.Tier7Day}

	_, cmd := m.Update(ResultMsg{Result: res})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	got, err := m.Result()
	if err != nil || got == nil || got.Peak != 1250 {
		t.Fatalf("Result() = %+v, %v", got, err)
	}
	if !strings.Contains(m.View(), "7 Day Pass") {
		t.Errorf("result view missing tier:\n%s", m.View())
	}
}

func TestModel_ErrorResult(t *testing.T) {
	m := NewModel(1300, nil)
	m.Update(ResultMsg{Err: errors.New("microphone unplugged")})
	if _, err := m.Result(); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(m.View(), "microphone unplugged") {
		t.Errorf("view missing error:\n%s", m.View())
	}
}

func TestModel_QuitCancelsAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(1300, cancel)
	m.Update(StartedMsg("s1"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if ctx.Err() == nil {
		t.Error("quitting did not cancel the attempt")
	}
	if cmd != nil {
		t.Error("model quit before the attempt reported its result")
	}
	if !m.quitting {
		t.Error("quitting flag not set")
	}
}

func TestModel_WindowResize(t *testing.T) {
	m := NewModel(1300, nil)
	m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	if m.width != 80 {
		t.Errorf("width = %d, want capped 80", m.width)
	}
	m.Update(tea.WindowSizeMsg{Width: 15, Height: 40})
	if m.width != 10 {
		t.Errorf("width = %d, want floor 10", m.width)
	}
}

func TestFilledCells(t *testing.T) {
	tests := []struct {
		score, max, width, want int
	}{
		{0, 1300, 50, 0},
		{650, 1300, 50, 25},
		{1300, 1300, 50, 50},
		{2555, 1300, 50, 50},
		{-10, 1300, 50, 0},
		{500, 0, 50, 0},
		{500, 1300, 0, 0},
	}
	for _, tt := range tests {
		if got := FilledCells(tt.score, tt.max, tt.width); got != tt.want {
			t.Errorf("FilledCells(%d, %d, %d) = %d, want %d", tt.score, tt.max, tt.width, got, tt.want)
		}
	}
}

func TestBandColor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, string(ColorLow)},
		{599, string(ColorLow)},
		{600, string(ColorMid)},
		{1199, string(ColorMid)},
		{1200, string(ColorHigh)},
	}
	for _, tt := range tests {
		if got := string(BandColor(tt.score)); got != tt.want {
			t.Errorf("BandColor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestMarkers(t *testing.T) {
	row := Markers(1300, 52)
	if n := strings.Count(row, "^"); n != len(loudness.Thresholds()) {
		t.Errorf("markers = %d, want %d in %q", n, len(loudness.Thresholds()), row)
	}
}
