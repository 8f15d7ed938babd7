// Package tui renders the live scream meter in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

// DefaultWidth is the meter width before the first WindowSizeMsg.
const DefaultWidth = 50

// Messages fed into [Model] by the capture hooks.
type (
	// ReadingMsg carries one engine reading.
	ReadingMsg loudness.Reading

	// CountdownMsg carries the whole seconds left.
	CountdownMsg int

	// StartedMsg marks the microphone as live.
	StartedMsg string

	// ResultMsg ends the attempt.
	ResultMsg struct {
		Result challenge.Result
		Err    error
	}
)

// Model is the bubbletea model of one attempt.
type Model struct {
	displayMax int
	width      int

	started   bool
	reading   loudness.Reading
	remaining int
	result    *challenge.Result
	err       error
	quitting  bool

	// cancel aborts the attempt when the user quits early.
	cancel context.CancelFunc
}

// NewModel creates a meter scaled to displayMax. cancel, if non-nil, is
// called when the user quits before the attempt ends.
func NewModel(displayMax int, cancel context.CancelFunc) *Model {
	if displayMax <= 0 {
		displayMax = challenge.DefaultDisplayMax
	}
	return &Model{displayMax: displayMax, width: DefaultWidth, cancel: cancel}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(10, min(msg.Width-12, 80))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			if m.result != nil || m.err != nil {
				return m, tea.Quit
			}
		}
		return m, nil

	case StartedMsg:
		m.started = true
		return m, nil

	case CountdownMsg:
		m.remaining = int(msg)
		return m, nil

	case ReadingMsg:
		m.reading = loudness.Reading(msg)
		return m, nil

	case ResultMsg:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			res := msg.Result
			m.result = &res
		}
		return m, tea.Quit
	}
	return m, nil
}

// Result returns the final result and error once the attempt ended.
func (m *Model) Result() (*challenge.Result, error) { return m.result, m.err }

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("WOOHOO! SCREAM CHALLENGE"))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Attempt failed: " + m.err.Error()))
		b.WriteString("\n")
		return boxStyle.Render(b.String())

	case m.result != nil:
		b.WriteString(Bar(m.result.Peak, m.displayMax, m.width))
		b.WriteString("\n\n")
		b.WriteString(resultLine(*m.result))
		b.WriteString("\n")
		return boxStyle.Render(b.String())

	case !m.started:
		b.WriteString(mutedStyle.Render("Waiting for the microphone..."))
		b.WriteString("\n")
		return boxStyle.Render(b.String())
	}

	b.WriteString(countdownStyle.Render(fmt.Sprintf("%2ds", m.remaining)))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render("SCREAM!"))
	b.WriteString("\n\n")
	b.WriteString(Bar(m.reading.Display, m.displayMax, m.width))
	b.WriteString("\n")
	b.WriteString(Markers(m.displayMax, m.width))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Score %4d   Peak %4d   %s",
		m.reading.Score, m.reading.Peak, loudness.Classify(m.reading.Peak).Label()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("q to give up"))
	return boxStyle.Render(b.String())
}

func resultLine(res challenge.Result) string {
	style := lipgloss.NewStyle().Bold(true).Foreground(BandColor(res.Peak))
	if !res.Rewarded() {
		return style.Render(fmt.Sprintf("Peak %d. No pass this time, try again!", res.Peak))
	}
	return style.Render(fmt.Sprintf("Peak %d. You won a %s!", res.Peak, res.Label()))
}

// Bar renders score as a horizontal meter of width cells scaled to
// displayMax.
func Bar(score, displayMax, width int) string {
	filled := FilledCells(score, displayMax, width)
	fill := lipgloss.NewStyle().Foreground(BandColor(score))
	return fill.Render(strings.Repeat("█", filled)) + trackStyle.Render(strings.Repeat("░", width-filled))
}

// FilledCells returns how many of width cells score fills.
func FilledCells(score, displayMax, width int) int {
	if width <= 0 {
		return 0
	}
	pct := loudness.UIPercent(score, displayMax)
	return min(width, int(pct/100*float64(width)))
}

// Markers renders a ruler under the bar with one tick per pass threshold.
func Markers(displayMax, width int) string {
	row := []rune(strings.Repeat(" ", width))
	for _, th := range loudness.Thresholds() {
		pos := FilledCells(th.MinScore, displayMax, width)
		if pos >= width {
			pos = width - 1
		}
		if pos >= 0 {
			row[pos] = '^'
		}
	}
	return mutedStyle.Render(string(row))
}

// Run drives runner through one attempt while rendering the meter. Quitting
// the UI cancels the attempt.
func Run(ctx context.Context, runner *challenge.Runner, opts ...tea.ProgramOption) (challenge.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(runner.DisplayMax(), cancel)
	p := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	type outcome struct {
		res challenge.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := runner.Run(ctx, challenge.Hooks{
			OnStart:     func(id string) { p.Send(StartedMsg(id)) },
			OnCountdown: func(n int) { p.Send(CountdownMsg(n)) },
			OnReading:   func(r loudness.Reading) { p.Send(ReadingMsg(r)) },
		})
		done <- outcome{res, err}
		p.Send(ResultMsg{Result: res, Err: err})
	}()

	_, uiErr := p.Run()
	cancel()
	out := <-done
	if out.err != nil {
		return out.res, out.err
	}
	if uiErr != nil && ctx.Err() == nil {
		return out.res, fmt.Errorf("tui: %w", uiErr)
	}
	return out.res, nil
}
