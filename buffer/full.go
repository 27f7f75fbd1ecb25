// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/bus"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/timing"
)

// fullSession is a source holding the whole decoded file in one buffer.
type fullSession struct {
	api     native.Context
	source  native.SourceID
	buffer  native.BufferID
	seconds float64
	subs    []*bus.Subscription

	// upload decodes the file into the buffer; set by Init.
	upload func() error
	stream audio.Stream
}

func readAll[T audio.Sample](ss audio.SampleStream[T]) ([]T, error) {
	if err := ss.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	var out []T
	for {
		chunk, err := ss.ReadSamples()
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return out, nil
		}
		out = append(out, chunk...)
	}
}

func bindFull[T audio.Sample](s *fullSession, ss audio.SampleStream[T]) {
	s.upload = func() error {
		data, err := readAll(ss)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		var upErr error
		switch d := any(data).(type) {
		case []byte:
			upErr = s.api.BufferData(s.buffer, ss.Format(), d, ss.SampleRate())
		case []float32:
			upErr = s.api.BufferFloatData(s.buffer, ss.Format(), d, ss.SampleRate())
		}
		if upErr != nil {
			return upErr
		}
		return s.api.QueueBuffers(s.source, s.buffer)
	}
}

func (s *fullSession) teardown() error {
	unsubscribe(s.subs)

	var errs []error
	errs = append(errs, s.api.Stop(s.source))
	errs = append(errs, s.api.DeleteSource(s.source))
	errs = append(errs, s.api.DeleteBuffers(s.buffer))
	if s.stream != nil {
		errs = append(errs, s.stream.Close())
	}
	return errors.Join(errs...)
}

// Full decodes the whole file into a single native buffer. Looping and
// seeking are left to the native source, so no goroutine is needed.
type Full struct {
	mtx *sync.Mutex

	dev      Device
	registry *audio.Registry
	channels *Channels
	logger   *log.Logger

	sess     *fullSession
	current  atomic.Uint32
	disposed bool
}

type FullOption func(*Full)

func WithFullLogger(l *log.Logger) FullOption {
	return func(f *Full) { f.logger = l }
}

func NewFull(dev Device, registry *audio.Registry, ch *Channels, opts ...FullOption) *Full {
	f := &Full{
		mtx:      &sync.Mutex{},
		dev:      dev,
		registry: registry,
		channels: ch,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Full) Init(path string) (native.SourceID, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.disposed {
		return 0, audio.ErrDisposed
	}
	if err := f.removeLocked(); err != nil {
		f.logger.Warn("replacing session", "err", err)
	}

	stream, err := f.registry.Open(path)
	if err != nil {
		return 0, err
	}
	api := f.dev.Context()
	if api == nil {
		stream.Close()
		return 0, fmt.Errorf("open %s: %w: no output device", path, audio.ErrNotInitialized)
	}

	src, err := api.GenSource()
	if err != nil {
		stream.Close()
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	ids, err := api.GenBuffers(1)
	if err != nil {
		api.DeleteSource(src)
		stream.Close()
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	sess := &fullSession{
		api:     api,
		source:  src,
		buffer:  ids[0],
		seconds: stream.TotalSeconds(),
		stream:  stream,
	}
	switch ss := stream.(type) {
	case audio.SampleStream[byte]:
		bindFull(sess, ss)
	case audio.SampleStream[float32]:
		bindFull(sess, ss)
	default:
		sess.teardown()
		return 0, fmt.Errorf("open %s: %w: stream %T", path, audio.ErrUnsupportedFormat, stream)
	}

	f.sess = sess
	f.current.Store(uint32(src))
	sess.subs = listen(f.channels, &f.current, f)

	f.logger.Debug("full buffer initialized", "source", src, "path", path)
	return src, nil
}

// Upload decodes the file into the buffer and releases the decoder.
func (f *Full) Upload() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.disposed {
		return audio.ErrDisposed
	}
	sess := f.sess
	if sess == nil {
		return fmt.Errorf("upload: %w", audio.ErrNotInitialized)
	}
	if sess.stream == nil {
		return nil
	}
	if err := sess.upload(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	err := sess.stream.Close()
	sess.stream = nil
	return err
}

func (f *Full) command(a Action) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	sess := f.sess
	if sess == nil {
		return
	}

	var err error
	switch a {
	case Play:
		err = sess.api.Play(sess.source)
	case Pause:
		err = sess.api.Pause(sess.source)
	case Reset:
		if err = sess.api.Stop(sess.source); err == nil {
			err = sess.api.Rewind(sess.source)
		}
	case EnableLoop:
		err = sess.api.SetLooping(sess.source, true)
	case DisableLoop:
		err = sess.api.SetLooping(sess.source, false)
	}
	if err != nil {
		f.dev.ReportError(fmt.Errorf("%v: %w", a, err))
	}
}

func (f *Full) seek(seconds float64) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	sess := f.sess
	if sess == nil {
		return
	}
	secs := float32(timing.Clamp(seconds, sess.seconds))
	if err := sess.api.SetSecOffset(sess.source, secs); err != nil {
		f.dev.ReportError(fmt.Errorf("seek to %.3fs: %w", seconds, err))
	}
}

func (f *Full) loopState() bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.loopingLocked()
}

func (f *Full) loopingLocked() bool {
	if f.sess == nil {
		return false
	}
	on, err := f.sess.api.Looping(f.sess.source)
	return err == nil && on
}

func (f *Full) IsLooping() bool { return f.loopState() }

func (f *Full) SourceID() native.SourceID {
	return native.SourceID(f.current.Load())
}

func (f *Full) TotalSeconds() float64 {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.sess == nil {
		return 0
	}
	return f.sess.seconds
}

func (f *Full) Position() float64 {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	if f.sess == nil {
		return 0
	}
	off, err := f.sess.api.SecOffset(f.sess.source)
	if err != nil {
		return 0
	}
	return timing.Clamp(float64(off), f.sess.seconds)
}

func (f *Full) RemoveBuffer() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.removeLocked()
}

func (f *Full) removeLocked() error {
	sess := f.sess
	if sess == nil {
		return nil
	}
	f.sess = nil
	f.current.Store(0)

	if err := sess.teardown(); err != nil {
		return fmt.Errorf("remove buffer: %w", err)
	}
	return nil
}

// Dispose releases the session. Later calls do nothing.
func (f *Full) Dispose() error {
	f.mtx.Lock()
	if f.disposed {
		f.mtx.Unlock()
		return nil
	}
	f.disposed = true
	f.mtx.Unlock()

	return f.RemoveBuffer()
}
