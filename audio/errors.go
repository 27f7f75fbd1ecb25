// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

// Error categories. Errors raised by the playback engine match one of them
// with errors.Is; decoder failures are passed through wrapped.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
	ErrNotInitialized = errors.New("not initialized")
	ErrDevice         = errors.New("device error")
	ErrNative         = errors.New("native audio error")
	ErrDisposed       = errors.New("disposed")
)

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	ErrUnsupportedExtension = fmt.Errorf("%w: unsupported file extension", ErrConfiguration)
	ErrUnsupportedFormat    = fmt.Errorf("%w: unsupported sample format", ErrConfiguration)
	ErrUnsupportedBuffer    = fmt.Errorf("%w: unsupported buffer type", ErrConfiguration)
	ErrFileNotFound         = fmt.Errorf("%w: audio file", ErrNotFound)
	ErrDeviceNotFound       = fmt.Errorf("%w: no such output device", ErrDevice)
)
