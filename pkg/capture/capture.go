// Package capture runs one timed microphone capture session.
//
// A [Session] opens a [Source] (the only operation that waits on the
// platform, e.g. for a microphone permission prompt), builds a small
// analysis graph
//
//	stream → high-pass filter (optional, 400 Hz) → analyser
//
// and emits a fresh analyser snapshot on every frame tick until the
// configured duration elapses or the session is stopped. All exit paths
// converge on a single release routine that stops the tickers, disconnects
// the graph, and closes the stream exactly once.
//
// The graph and every callback run on one session goroutine. Sources hand
// PCM over a channel, so no state is shared with device threads.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/woohoo/pkg/audio"
)

var (
	// ErrPermissionDenied is returned when the platform or the user refuses
	// microphone access. It is never retried automatically.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")

	// ErrDeviceUnavailable is returned when no usable capture device exists
	// or the device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture: capture device unavailable")

	// ErrAlreadyStarted is returned by a second call to [Session.Start].
	ErrAlreadyStarted = errors.New("capture: session already started")

	// ErrStopped is returned by [Session.Start] when the session was stopped
	// before the stream became live.
	ErrStopped = errors.New("capture: session stopped")
)

// Source acquires a live input stream.
type Source interface {
	// Open blocks until the platform grants or denies access. Errors should
	// wrap [ErrPermissionDenied] or [ErrDeviceUnavailable] where applicable.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture stream owned by exactly one [Session].
type Stream interface {
	// Frames delivers captured PCM. The channel is closed when the stream
	// ends on its own (device loss, remote hang-up).
	Frames() <-chan audio.AudioFrame

	// SampleRate is the rate of every frame on Frames, in Hz.
	SampleRate() int

	// Err reports why Frames was closed, or nil.
	Err() error

	// Close releases the device. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Sample is one analyser snapshot. Data is freshly allocated per tick and
// may be retained by the callback.
type Sample struct {
	Domain  audio.Domain
	Data    []byte
	Elapsed time.Duration
}
