// Package mock provides in-memory implementations of [capture.Source] and
// [capture.Stream] for use in unit tests.
//
// The mocks record every method call and allow the test to configure return
// values via exported fields. They are safe for concurrent use.
//
// Example:
//
//	stream := mock.NewStream(48000, 16)
//	src := &mock.Source{OpenResult: stream}
//	sess := capture.New(src, capture.DefaultConfig())
//	_ = sess.Start(ctx)
//	stream.Send(audio.AudioFrame{Data: pcm, SampleRate: 48000, Channels: 1})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/capture"
)

// Compile-time interface assertions.
var (
	_ capture.Source = (*Source)(nil)
	_ capture.Stream = (*Stream)(nil)
)

// Source is a mock implementation of [capture.Source].
type Source struct {
	mu sync.Mutex

	// OpenResult is returned by [Source.Open]. If nil and OpenError is nil,
	// a new 48 kHz stream is created and stored here.
	OpenResult *Stream

	// OpenError is returned by [Source.Open].
	OpenError error

	// Gate, when non-nil, makes Open block until it is closed or ctx is
	// done. Use it to simulate a pending permission prompt.
	Gate chan struct{}

	// Opened, when non-nil, receives a value each time Open is entered.
	Opened chan struct{}

	// CallCountOpen records how many times Open was called.
	CallCountOpen int
}

// Open implements [capture.Source].
func (s *Source) Open(ctx context.Context) (capture.Stream, error) {
	s.mu.Lock()
	s.CallCountOpen++
	gate, opened := s.Gate, s.Opened
	s.mu.Unlock()

	if opened != nil {
		opened <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenError != nil {
		return nil, s.OpenError
	}
	if s.OpenResult == nil {
		s.OpenResult = NewStream(48000, 64)
	}
	return s.OpenResult, nil
}

// Stream is a mock implementation of [capture.Stream]. Tests push PCM with
// Send and simulate device loss with End.
type Stream struct {
	mu sync.Mutex

	frames chan audio.AudioFrame
	rate   int
	ended  bool
	endErr error

	// CloseError is returned by [Stream.Close].
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewStream creates a stream reporting sampleRate with a frame buffer of
// the given capacity.
func NewStream(sampleRate, buffer int) *Stream {
	return &Stream{
		frames: make(chan audio.AudioFrame, buffer),
		rate:   sampleRate,
	}
}

// Frames implements [capture.Stream].
func (s *Stream) Frames() <-chan audio.AudioFrame { return s.frames }

// SampleRate implements [capture.Stream].
func (s *Stream) SampleRate() int { return s.rate }

// Err implements [capture.Stream]. Returns the error passed to End.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endErr
}

// Close implements [capture.Stream]. Returns CloseError.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}

// Closed reports how many times Close was called.
func (s *Stream) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountClose
}

// Send queues frame without blocking. It reports false when the buffer is
// full or the stream has ended.
func (s *Stream) Send(frame audio.AudioFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		return false
	}
}

// End closes the frame channel as if the device disappeared. err is
// reported by Err afterwards.
func (s *Stream) End(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.endErr = err
	close(s.frames)
}
