package capture

import (
	"fmt"

	"github.com/MrWong99/woohoo/pkg/audio"
)

// graph is the per-session processing chain: PCM decode → mono → optional
// high-pass → analyser. Owned by the session goroutine.
type graph struct {
	domain   audio.Domain
	conv     audio.MonoConverter
	filter   *HighPass
	analyser *Analyser
	scratch  []float64

	connected bool
}

func newGraph(cfg Config, sampleRate int) (*graph, error) {
	a, err := NewAnalyser(cfg.FFTSize, cfg.Smoothing)
	if err != nil {
		return nil, err
	}
	g := &graph{
		domain:    cfg.Domain,
		analyser:  a,
		connected: true,
	}
	if cfg.HighPassHz > 0 {
		hp, err := NewHighPass(cfg.HighPassHz, cfg.HighPassQ, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("capture: build graph: %w", err)
		}
		g.filter = hp
	}
	return g, nil
}

// push decodes one frame and feeds it through the chain. Frames the
// converter rejects are dropped.
func (g *graph) push(frame audio.AudioFrame) {
	if !g.connected {
		return
	}
	mono := g.conv.Convert(frame)
	if len(mono) == 0 {
		return
	}
	g.scratch = audio.DecodePCM16(g.scratch[:0], mono)
	if g.filter != nil {
		g.filter.Process(g.scratch)
	}
	g.analyser.Write(g.scratch)
}

// snapshot renders the analyser into a freshly allocated buffer of
// FrequencyBinCount bytes.
func (g *graph) snapshot() []byte {
	buf := make([]byte, g.analyser.FrequencyBinCount())
	if g.domain == audio.DomainFrequency {
		g.analyser.FrequencyBytes(buf)
	} else {
		g.analyser.TimeDomainBytes(buf)
	}
	return buf
}

// disconnect detaches the chain; later pushes are ignored.
func (g *graph) disconnect() {
	if !g.connected {
		return
	}
	g.connected = false
	g.analyser.Reset()
	if g.filter != nil {
		g.filter.Reset()
	}
}
