//go:build !cgo || noaudio

package malgo

import (
	"context"
	"fmt"

	"github.com/MrWong99/woohoo/pkg/capture"
)

var _ capture.Source = (*Source)(nil)

// Open always fails in builds without audio support.
func (s *Source) Open(context.Context) (capture.Stream, error) {
	return nil, fmt.Errorf("%w: built without audio support", capture.ErrDeviceUnavailable)
}

// ListDevices always fails in builds without audio support.
func ListDevices(context.Context) ([]Device, error) {
	return nil, fmt.Errorf("%w: built without audio support", capture.ErrDeviceUnavailable)
}
