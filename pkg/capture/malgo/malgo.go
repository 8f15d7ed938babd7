//go:build cgo && !noaudio

package malgo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	miniaudio "github.com/gen2brain/malgo"

	"github.com/MrWong99/woohoo/pkg/audio"
	"github.com/MrWong99/woohoo/pkg/capture"
)

var _ capture.Source = (*Source)(nil)

var emptyDeviceID miniaudio.DeviceID

func parseDeviceID(id string) (miniaudio.DeviceID, error) {
	var res miniaudio.DeviceID
	if id == "" {
		return res, nil
	}
	raw, err := hex.DecodeString(id)
	if err != nil {
		return res, fmt.Errorf("malgo: invalid device id %q: %w", id, err)
	}
	copy(res[:], raw)
	return res, nil
}

// Open initialises miniaudio and starts capturing. On platforms that show a
// permission prompt, device start blocks until the user answers.
func (s *Source) Open(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devID, err := parseDeviceID(s.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrDeviceUnavailable, err)
	}

	mctx, err := miniaudio.InitContext(nil, miniaudio.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %w", capture.ErrDeviceUnavailable, err)
	}

	st := &stream{
		mctx:   mctx,
		rate:   s.sampleRate(),
		frames: make(chan audio.AudioFrame, frameBuffer),
	}

	cfg := miniaudio.DefaultDeviceConfig(miniaudio.Capture)
	cfg.SampleRate = uint32(st.rate)
	cfg.PeriodSizeInMilliseconds = uint32(s.period() / time.Millisecond)
	if devID != emptyDeviceID {
		cfg.Capture.DeviceID = devID.Pointer()
	}
	cfg.Capture.Format = miniaudio.FormatS16
	cfg.Capture.Channels = 1
	cfg.Alsa.NoMMap = 1

	dev, err := miniaudio.InitDevice(mctx.Context, cfg, miniaudio.DeviceCallbacks{
		Data: st.onData,
	})
	if err != nil {
		st.freeContext()
		return nil, classify("init device", err)
	}
	st.dev = dev

	st.started = time.Now()
	if err := dev.Start(); err != nil {
		dev.Uninit()
		st.freeContext()
		return nil, classify("start device", err)
	}

	slog.Info("malgo: capture started", "sampleRate", st.rate, "device", s.DeviceID)
	return st, nil
}

// classify maps miniaudio failures onto the capture sentinels.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return fmt.Errorf("%w: %s: %w", capture.ErrPermissionDenied, op, err)
	}
	return fmt.Errorf("%w: %s: %w", capture.ErrDeviceUnavailable, op, err)
}

type stream struct {
	mctx    *miniaudio.AllocatedContext
	dev     *miniaudio.Device
	rate    int
	started time.Time

	mu     sync.Mutex
	closed bool
	frames chan audio.AudioFrame

	dropped   int
	closeOnce sync.Once
	closeErr  error
}

// onData runs on the miniaudio device thread. The input buffer is reused
// by miniaudio, so it is copied before handing it over.
func (st *stream) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	frame := audio.AudioFrame{
		Data:       append([]byte(nil), input...),
		SampleRate: st.rate,
		Channels:   1,
		Timestamp:  time.Since(st.started),
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	select {
	case st.frames <- frame:
	default:
		st.dropped++
	}
}

func (st *stream) Frames() <-chan audio.AudioFrame { return st.frames }

func (st *stream) SampleRate() int { return st.rate }

func (st *stream) Err() error { return nil }

func (st *stream) Close() error {
	st.closeOnce.Do(func() {
		var errs []error
		if err := st.dev.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop device: %w", err))
		}
		st.dev.Uninit()

		st.mu.Lock()
		st.closed = true
		dropped := st.dropped
		close(st.frames)
		st.mu.Unlock()

		if err := st.freeContext(); err != nil {
			errs = append(errs, err)
		}
		if dropped > 0 {
			slog.Debug("malgo: frames dropped while the session was busy", "count", dropped)
		}
		if err := errors.Join(errs...); err != nil {
			st.closeErr = fmt.Errorf("malgo: close: %w", err)
		}
	})
	return st.closeErr
}

func (st *stream) freeContext() error {
	err := st.mctx.Uninit()
	st.mctx.Free()
	if err != nil {
		return fmt.Errorf("uninit context: %w", err)
	}
	return nil
}

// ListDevices returns the capture devices miniaudio can see.
func ListDevices(_ context.Context) ([]Device, error) {
	mctx, err := miniaudio.InitContext(nil, miniaudio.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %w", capture.ErrDeviceUnavailable, err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(miniaudio.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo: list devices: %w", err)
	}

	res := make([]Device, 0, len(infos))
	seen := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		full, err := mctx.DeviceInfo(miniaudio.Capture, info.ID, miniaudio.Shared)
		if err != nil {
			slog.Warn("malgo: unable to get device info", "err", err)
			continue
		}
		id := hex.EncodeToString(trimZeros(full.ID[:]))
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, Device{
			ID:        id,
			Name:      full.Name(),
			IsDefault: full.IsDefault == 1,
		})
	}
	return res, nil
}

func trimZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
