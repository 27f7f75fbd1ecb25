// SPDX-License-Identifier: EPL-2.0

package native

import (
	"fmt"

	"github.com/ik5/audstream/audio"
)

// SourceID names one playing voice of a Context. Zero is never issued.
type SourceID uint32

// BufferID names one sample buffer of a Context. Zero is never issued.
type BufferID uint32

// SourceState follows the classic Initial -> Playing <-> Paused -> Stopped
// cycle of queued-buffer audio APIs.
type SourceState int

const (
	Initial SourceState = iota
	Playing
	Paused
	Stopped
)

func (s SourceState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// API is the subset of a queued-buffer audio API the engine drives.
//
// Queue semantics: buffers play in queue order; a buffer that finished
// playing counts as processed and stays queued until UnqueueBuffers
// removes it from the head of the queue. Stop marks every queued buffer
// processed.
type API interface {
	GenSource() (SourceID, error)
	DeleteSource(SourceID) error
	GenBuffers(n int) ([]BufferID, error)
	DeleteBuffers(ids ...BufferID) error

	// BufferData replaces the content of a buffer that is not queued.
	BufferData(id BufferID, format audio.Format, data []byte, sampleRate int) error
	BufferFloatData(id BufferID, format audio.Format, data []float32, sampleRate int) error

	QueueBuffers(src SourceID, ids ...BufferID) error
	// UnqueueBuffers removes n processed buffers from the head of the queue.
	UnqueueBuffers(src SourceID, n int) ([]BufferID, error)

	Play(SourceID) error
	Pause(SourceID) error
	Stop(SourceID) error
	Rewind(SourceID) error

	SourceState(SourceID) (SourceState, error)
	BuffersProcessed(SourceID) (int, error)
	BuffersQueued(SourceID) (int, error)

	Gain(SourceID) (float32, error)
	SetGain(SourceID, float32) error
	Pitch(SourceID) (float32, error)
	SetPitch(SourceID, float32) error
	// SecOffset is the playback offset within the queued buffers.
	SecOffset(SourceID) (float32, error)
	SetSecOffset(SourceID, float32) error
	Looping(SourceID) (bool, error)
	SetLooping(SourceID, bool) error
}

// Context is an API bound to one open output device.
type Context interface {
	API
	Device() string
	Close() error
}

// Driver enumerates and opens output devices.
type Driver interface {
	Devices() ([]string, error)
	DefaultDevice() (string, error)
	Open(device string) (Context, error)
}
