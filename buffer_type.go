// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"fmt"
	"strings"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/native"
)

// Buffer is what a Sound plays through. buffer.Streaming and buffer.Full
// implement it.
type Buffer interface {
	Init(path string) (native.SourceID, error)
	Upload() error
	RemoveBuffer() error
	Dispose() error

	SourceID() native.SourceID
	TotalSeconds() float64
	Position() float64
	IsLooping() bool
}

var (
	_ Buffer = (*buffer.Streaming)(nil)
	_ Buffer = (*buffer.Full)(nil)
)

// BufferType selects the Buffer a Sound is built on.
type BufferType int

const (
	// Stream keeps only a few chunks of the file in native memory.
	Stream BufferType = iota
	// Full decodes the whole file up front.
	Full
)

func (t BufferType) String() string {
	switch t {
	case Stream:
		return "stream"
	case Full:
		return "full"
	}
	return fmt.Sprintf("buffer-type(%d)", int(t))
}

// ParseBufferType accepts the names printed by String.
func ParseBufferType(s string) (BufferType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "streaming", "":
		return Stream, nil
	case "full":
		return Full, nil
	}
	return 0, fmt.Errorf("%w: %q", audio.ErrUnsupportedBuffer, s)
}
