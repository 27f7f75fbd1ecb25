// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/native"
)

// Ring cycles a fixed set of native buffers through one source. Position
// counts the samples of every buffer that finished playing since the last
// fill, in the unit of the stream format.
type Ring struct {
	api    native.API
	source native.SourceID
	ids    []native.BufferID
	format audio.Format
	rate   int
	step   int64

	position atomic.Int64
}

// Step is how far one processed buffer advances the position: byte
// formats count bytes per channel, float formats count values.
func Step(format audio.Format, byteChunk, floatChunk int) (int64, error) {
	switch {
	case !format.Valid():
		return 0, fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, format)
	case format.IsFloat():
		return int64(floatChunk), nil
	default:
		return int64(byteChunk / format.Channels()), nil
	}
}

func NewRing(api native.API, src native.SourceID, ids []native.BufferID, format audio.Format, rate, byteChunk, floatChunk int) (*Ring, error) {
	step, err := Step(format, byteChunk, floatChunk)
	if err != nil {
		return nil, err
	}
	return &Ring{
		api:    api,
		source: src,
		ids:    ids,
		format: format,
		rate:   rate,
		step:   step,
	}, nil
}

func (r *Ring) Source() native.SourceID { return r.source }
func (r *Ring) Format() audio.Format    { return r.format }
func (r *Ring) Len() int                { return len(r.ids) }
func (r *Ring) Position() int64         { return r.position.Load() }

func (r *Ring) upload(id native.BufferID, chunk any) error {
	var err error
	switch c := chunk.(type) {
	case []byte:
		err = r.api.BufferData(id, r.format, c, r.rate)
	case []float32:
		err = r.api.BufferFloatData(id, r.format, c, r.rate)
	default:
		return fmt.Errorf("%w: chunk of %T", audio.ErrUnsupportedFormat, chunk)
	}
	if err != nil {
		return fmt.Errorf("upload buffer %d: %w", id, err)
	}
	if err := r.api.QueueBuffers(r.source, id); err != nil {
		return fmt.Errorf("queue buffer %d: %w", id, err)
	}
	return nil
}

// Refill replaces every processed buffer with the next chunk from produce
// and requeues it. An empty chunk leaves the buffer unattached. It returns
// the number of buffers requeued.
func Refill[T audio.Sample](r *Ring, produce func() ([]T, error)) (int, error) {
	processed, err := r.api.BuffersProcessed(r.source)
	if err != nil {
		return 0, fmt.Errorf("refill: %w", err)
	}
	if processed == 0 {
		return 0, nil
	}

	ids, err := r.api.UnqueueBuffers(r.source, processed)
	if err != nil {
		return 0, fmt.Errorf("refill: %w", err)
	}

	requeued := 0
	for _, id := range ids {
		r.position.Add(r.step)

		chunk, err := produce()
		if err != nil {
			return requeued, fmt.Errorf("refill: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}
		if err := r.upload(id, chunk); err != nil {
			return requeued, fmt.Errorf("refill: %w", err)
		}
		requeued++
	}
	return requeued, nil
}

// UnqueueAll stops the source and detaches every queued buffer.
func (r *Ring) UnqueueAll() error {
	if err := r.api.Stop(r.source); err != nil {
		return fmt.Errorf("unqueue all: %w", err)
	}
	processed, err := r.api.BuffersProcessed(r.source)
	if err != nil {
		return fmt.Errorf("unqueue all: %w", err)
	}
	if _, err := r.api.UnqueueBuffers(r.source, processed); err != nil {
		return fmt.Errorf("unqueue all: %w", err)
	}
	return nil
}

func fill[T audio.Sample](r *Ring, produce func() ([]T, error)) error {
	for _, id := range r.ids {
		chunk, err := produce()
		if err != nil {
			return fmt.Errorf("fill: %w", err)
		}
		if len(chunk) == 0 {
			continue
		}
		if err := r.upload(id, chunk); err != nil {
			return fmt.Errorf("fill: %w", err)
		}
	}
	return nil
}

// FillFromStart rewinds the decoder through flush and fills every buffer
// from the beginning. The position restarts at zero.
func FillFromStart[T audio.Sample](r *Ring, flush func() error, produce func() ([]T, error)) error {
	if err := r.UnqueueAll(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := fill(r, produce); err != nil {
		return err
	}
	r.position.Store(0)
	return nil
}

// FillFrom fills every buffer from the current decoder position, which the
// caller already moved to start.
func FillFrom[T audio.Sample](r *Ring, start int64, produce func() ([]T, error)) error {
	if err := r.UnqueueAll(); err != nil {
		return err
	}
	if err := fill(r, produce); err != nil {
		return err
	}
	r.position.Store(start)
	return nil
}

// Release detaches and deletes the buffers.
func (r *Ring) Release() error {
	if err := r.UnqueueAll(); err != nil {
		return err
	}
	if err := r.api.DeleteBuffers(r.ids...); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}
