package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/capture"
)

// frameBuffer is the number of PCM chunks queued between the socket reader
// and the capture session. Chunks that do not fit are dropped.
const frameBuffer = 32

// maxMessageSize bounds a single client message.
const maxMessageSize = 64 << 10

var (
	_ capture.Source = (*wsSource)(nil)
	_ capture.Stream = (*wsSource)(nil)
)

// wsSource adapts one browser WebSocket to [capture.Source]. The browser
// captures the microphone and streams int16 mono PCM; Open resolves once
// the browser reports the microphone is live.
type wsSource struct {
	conn   *websocket.Conn
	frames chan audio.AudioFrame
	ready  chan int
	failed chan error
	done   chan struct{}

	mu      sync.Mutex
	rate    int
	readErr error
	closed  bool
	dropped int
}

func newWSSource(conn *websocket.Conn) *wsSource {
	conn.SetReadLimit(maxMessageSize)
	return &wsSource{
		conn:   conn,
		frames: make(chan audio.AudioFrame, frameBuffer),
		ready:  make(chan int, 1),
		failed: make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// readLoop consumes client messages until the socket fails or ctx is done.
// It closes the frame channel on exit, which ends a running session.
func (s *wsSource) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.frames)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}

		switch typ {
		case websocket.MessageBinary:
			s.push(data)
		case websocket.MessageText:
			s.control(data)
		}
	}
}

func (s *wsSource) push(pcm []byte) {
	s.mu.Lock()
	closed, rate := s.closed, s.rate
	s.mu.Unlock()
	if closed || rate == 0 {
		return
	}

	select {
	case s.frames <- audio.AudioFrame{Data: pcm, SampleRate: rate, Channels: 1}:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

func (s *wsSource) control(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Debug("web: ignoring malformed control message", "err", err)
		return
	}

	switch msg.Type {
	case msgReady:
		if msg.SampleRate <= 0 {
			s.fail(fmt.Errorf("%w: invalid sample rate %d", capture.ErrDeviceUnavailable, msg.SampleRate))
			return
		}
		s.mu.Lock()
		if s.rate == 0 {
			s.rate = msg.SampleRate
		}
		s.mu.Unlock()
		select {
		case s.ready <- msg.SampleRate:
		default:
		}
	case msgError:
		if msg.Reason == reasonPermissionDenied {
			s.fail(capture.ErrPermissionDenied)
		} else {
			s.fail(capture.ErrDeviceUnavailable)
		}
	default:
		slog.Debug("web: ignoring unknown control message", "type", msg.Type)
	}
}

func (s *wsSource) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
}

// Open implements [capture.Source]. It blocks until the browser reports
// ready or an error, the socket closes, or ctx is done.
func (s *wsSource) Open(ctx context.Context) (capture.Stream, error) {
	select {
	case <-s.ready:
		return s, nil
	case err := <-s.failed:
		return nil, err
	case <-s.done:
		return nil, fmt.Errorf("%w: client disconnected", capture.ErrDeviceUnavailable)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Frames implements [capture.Stream].
func (s *wsSource) Frames() <-chan audio.AudioFrame { return s.frames }

// SampleRate implements [capture.Stream].
func (s *wsSource) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Err implements [capture.Stream].
func (s *wsSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr == nil {
		return nil
	}
	if websocket.CloseStatus(s.readErr) != -1 || errors.Is(s.readErr, context.Canceled) {
		return fmt.Errorf("%w: client disconnected", capture.ErrDeviceUnavailable)
	}
	return fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, s.readErr)
}

// Close implements [capture.Stream]. It stops frame delivery; the socket
// stays open for the result message.
func (s *wsSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Dropped reports how many chunks were discarded because the session fell
// behind.
func (s *wsSource) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
