// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/bus"
	"github.com/ik5/audstream/device"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/timing"
)

// Config tunes a streaming engine.
type Config struct {
	BufferCount    int
	ByteChunkSize  int
	FloatChunkSize int

	// ChangingWait is the pause while the device is being swapped.
	ChangingWait time.Duration
	// IdleWait is the pause while the source is not playing.
	IdleWait time.Duration
	// RefillWait is the pause between refills at normal speed. It shrinks
	// linearly to zero at double speed.
	RefillWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferCount:    4,
		ByteChunkSize:  16384,
		FloatChunkSize: 8192,
		ChangingWait:   100 * time.Millisecond,
		IdleWait:       125 * time.Millisecond,
		RefillWait:     100 * time.Millisecond,
	}
}

// Device is the part of device.Manager an engine needs.
type Device interface {
	Context() native.Context
	State() device.State
	Changing() *bus.Topic[device.Change]
	Changed() *bus.Topic[device.Change]
	ReportError(err error)
}

// State of an engine.
type State int

const (
	StateNotInitialized State = iota
	StateReady
	StateStreaming
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not-initialized"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// session is everything bound to one native source. It is rebuilt from
// scratch after a device change.
type session struct {
	api    native.Context
	source native.SourceID
	stream audio.Stream
	ring   *Ring
	subs   []*bus.Subscription

	refill        func() (int, error)
	fillFromStart func() error
	fillFrom      func(start int64) error
}

func bind[T audio.Sample](s *session, ss audio.SampleStream[T]) {
	s.refill = func() (int, error) {
		return Refill(s.ring, ss.ReadSamples)
	}
	s.fillFromStart = func() error {
		return FillFromStart(s.ring, ss.Flush, ss.ReadSamples)
	}
	s.fillFrom = func(start int64) error {
		return FillFrom(s.ring, start, ss.ReadSamples)
	}
}

func (s *session) totalSeconds() float64 { return s.stream.TotalSeconds() }
func (s *session) totalSamples() int64   { return s.stream.TotalSamples() }

// atEnd reports whether every sample of the stream has played.
func (s *session) atEnd() (bool, error) {
	if total := s.totalSamples(); total > 0 {
		return s.ring.Position() >= total, nil
	}
	// unknown length: the ring ran dry
	queued, err := s.api.BuffersQueued(s.source)
	if err != nil {
		return false, err
	}
	return queued == 0 && s.ring.Position() > 0, nil
}

// rewind refills from the start and leaves the source Initial.
func (s *session) rewind() error {
	if err := s.fillFromStart(); err != nil {
		return err
	}
	if err := s.api.Rewind(s.source); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	return nil
}

// teardown releases everything in reverse order of acquisition. Errors
// are joined so that one failure does not leak the rest.
func (s *session) teardown() error {
	unsubscribe(s.subs)

	var errs []error
	if s.ring != nil {
		errs = append(errs, s.ring.Release())
	}
	errs = append(errs, s.api.DeleteSource(s.source))
	errs = append(errs, s.stream.Close())
	return errors.Join(errs...)
}

// Streaming plays a file through a small ring of native buffers, refilled
// from the decoder by a background goroutine.
type Streaming struct {
	mtx *sync.Mutex

	dev      Device
	registry *audio.Registry
	channels *Channels
	cfg      Config
	logger   *log.Logger

	sess     *session
	current  atomic.Uint32
	looping  atomic.Bool
	changing atomic.Bool
	state    State

	cancel  context.CancelFunc
	done    chan struct{}
	devSubs []*bus.Subscription
}

type Option func(*Streaming)

func WithLogger(l *log.Logger) Option {
	return func(s *Streaming) { s.logger = l }
}

func WithConfig(cfg Config) Option {
	return func(s *Streaming) { s.cfg = cfg }
}

// NewStreaming returns an engine that opens files through registry, plays on
// dev and takes its commands from ch.
func NewStreaming(dev Device, registry *audio.Registry, ch *Channels, opts ...Option) *Streaming {
	s := &Streaming{
		mtx:      &sync.Mutex{},
		dev:      dev,
		registry: registry,
		channels: ch,
		cfg:      DefaultConfig(),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.devSubs = []*bus.Subscription{
		dev.Changing().Subscribe(func(device.Change) { s.changing.Store(true) }),
		dev.Changed().Subscribe(func(device.Change) { s.changing.Store(false) }),
	}
	return s
}

// openSession decodes path and acquires a source and the buffer ring on
// the current device.
func openSession(dev Device, registry *audio.Registry, path string, count, byteChunk, floatChunk int) (*session, error) {
	stream, err := registry.Open(path)
	if err != nil {
		return nil, err
	}

	api := dev.Context()
	if api == nil {
		stream.Close()
		return nil, fmt.Errorf("open %s: %w: no output device", path, audio.ErrNotInitialized)
	}

	src, err := api.GenSource()
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &session{api: api, source: src, stream: stream}

	ids, err := api.GenBuffers(count)
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	ring, err := NewRing(api, src, ids, stream.Format(), stream.SampleRate(), byteChunk, floatChunk)
	if err != nil {
		api.DeleteBuffers(ids...)
		s.teardown()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.ring = ring

	switch ss := stream.(type) {
	case audio.SampleStream[byte]:
		bind(s, ss)
	case audio.SampleStream[float32]:
		bind(s, ss)
	default:
		s.teardown()
		return nil, fmt.Errorf("open %s: %w: stream %T", path, audio.ErrUnsupportedFormat, stream)
	}
	return s, nil
}

// Init opens path and acquires a fresh source. A previous session is torn
// down first.
func (s *Streaming) Init(path string) (native.SourceID, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.state == StateDisposed {
		return 0, audio.ErrDisposed
	}
	if s.sess != nil {
		if err := s.removeLocked(); err != nil {
			s.logger.Warn("replacing session", "err", err)
		}
	}

	sess, err := openSession(s.dev, s.registry, path, s.cfg.BufferCount, s.cfg.ByteChunkSize, s.cfg.FloatChunkSize)
	if err != nil {
		return 0, err
	}
	s.sess = sess
	s.changing.Store(false)
	s.current.Store(uint32(sess.source))
	sess.subs = listen(s.channels, &s.current, s)
	if s.state == StateNotInitialized {
		s.state = StateReady
	}

	s.logger.Debug("stream initialized", "source", sess.source, "path", path, "format", sess.stream.Format())
	return sess.source, nil
}

// Upload fills the ring from the start and starts the refill goroutine
// unless it is already running.
func (s *Streaming) Upload() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.state == StateDisposed {
		return audio.ErrDisposed
	}
	if s.sess == nil {
		return fmt.Errorf("upload: %w", audio.ErrNotInitialized)
	}
	if err := s.sess.rewind(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if !s.running() {
		if s.cancel != nil {
			s.cancel()
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(ctx, s.done)
	}
	s.state = StateStreaming
	return nil
}

// running reports whether a refill goroutine is alive. A loop that failed
// has exited and is started again by the next Upload.
func (s *Streaming) running() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Streaming) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		wait, err := s.tick()
		if err != nil {
			s.fail(err)
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// refillWait maps speed 1x to RefillWait and 2x to zero.
func (s *Streaming) refillWait(speed float32) time.Duration {
	wait := timing.Map(float64(speed), 1, 2, float64(s.cfg.RefillWait), 0)
	return time.Duration(math.Max(wait, 0))
}

// tick runs one iteration of the refill loop and returns how long to sleep.
func (s *Streaming) tick() (time.Duration, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess := s.sess
	if sess == nil || s.changing.Load() || s.dev.State() == device.Changing {
		return s.cfg.ChangingWait, nil
	}

	end, err := sess.atEnd()
	if err != nil {
		return 0, err
	}
	if end {
		if err := sess.rewind(); err != nil {
			return 0, err
		}
		if !s.looping.Load() {
			s.logger.Debug("end of stream", "source", sess.source)
			return s.cfg.IdleWait, nil
		}
		if err := sess.api.Play(sess.source); err != nil {
			return 0, fmt.Errorf("loop: %w", err)
		}
		return s.cfg.RefillWait, nil
	}

	state, err := sess.api.SourceState(sess.source)
	if err != nil {
		return 0, err
	}
	if state != native.Playing {
		processed, err := sess.api.BuffersProcessed(sess.source)
		if err != nil {
			return 0, err
		}
		// ran dry while playing: refill and carry on
		if state == native.Stopped && processed > 0 {
			requeued, err := sess.refill()
			if err != nil {
				return 0, err
			}
			if requeued > 0 {
				s.logger.Debug("underrun", "source", sess.source, "requeued", requeued)
				if err := sess.api.Play(sess.source); err != nil {
					return 0, fmt.Errorf("resume: %w", err)
				}
			}
		}
		return s.cfg.IdleWait, nil
	}

	if _, err := sess.refill(); err != nil {
		return 0, err
	}
	speed, err := sess.api.Pitch(sess.source)
	if err != nil {
		return 0, err
	}
	return s.refillWait(speed), nil
}

// fail surfaces a loop error and silences the source.
func (s *Streaming) fail(err error) {
	s.mtx.Lock()
	if s.sess != nil {
		_ = s.sess.api.Stop(s.sess.source)
	}
	s.mtx.Unlock()

	s.logger.Error("streaming stopped", "err", err)
	s.dev.ReportError(err)
}

func (s *Streaming) command(a Action) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess := s.sess
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
		err = sess.rewind()
	case EnableLoop:
		s.looping.Store(true)
	case DisableLoop:
		s.looping.Store(false)
	}
	if err != nil {
		s.dev.ReportError(fmt.Errorf("%v: %w", a, err))
	}
}

func (s *Streaming) seek(seconds float64) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess := s.sess
	if sess == nil {
		return
	}
	if err := s.seekLocked(sess, seconds); err != nil {
		s.dev.ReportError(fmt.Errorf("seek to %.3fs: %w", seconds, err))
	}
}

func (s *Streaming) seekLocked(sess *session, seconds float64) error {
	state, err := sess.api.SourceState(sess.source)
	if err != nil {
		return err
	}
	if err := sess.api.Stop(sess.source); err != nil {
		return err
	}

	var sample int64
	if total := sess.totalSeconds(); total > 0 {
		sample = timing.ToSamples(timing.Clamp(seconds, total), total, sess.totalSamples())
	}
	if sess.stream.Format().IsFloat() {
		sample -= sample % int64(sess.stream.Channels())
	}
	if err := sess.stream.SeekSample(sample); err != nil {
		return err
	}
	if err := sess.fillFrom(sample); err != nil {
		return err
	}

	switch state {
	case native.Playing:
		return sess.api.Play(sess.source)
	case native.Paused:
		if err := sess.api.Play(sess.source); err != nil {
			return err
		}
		return sess.api.Pause(sess.source)
	}
	return sess.api.Rewind(sess.source)
}

func (s *Streaming) loopState() bool { return s.looping.Load() }

// RemoveBuffer tears down the current session. The engine can be
// initialized again afterwards.
func (s *Streaming) RemoveBuffer() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.removeLocked()
}

func (s *Streaming) removeLocked() error {
	sess := s.sess
	if sess == nil {
		return nil
	}
	s.sess = nil
	s.current.Store(0)

	if err := sess.teardown(); err != nil {
		return fmt.Errorf("remove buffer: %w", err)
	}
	s.logger.Debug("stream removed", "source", sess.source)
	return nil
}

// Dispose stops the refill goroutine, waits for it to exit and releases the
// session. Later calls do nothing.
func (s *Streaming) Dispose() error {
	s.mtx.Lock()
	if s.state == StateDisposed {
		s.mtx.Unlock()
		return nil
	}
	s.state = StateDisposed
	cancel, done := s.cancel, s.done
	s.mtx.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	unsubscribe(s.devSubs)
	return s.RemoveBuffer()
}

func (s *Streaming) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// SourceID is the current source, zero without a session.
func (s *Streaming) SourceID() native.SourceID {
	return native.SourceID(s.current.Load())
}

func (s *Streaming) IsLooping() bool { return s.looping.Load() }

func (s *Streaming) TotalSeconds() float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.sess == nil {
		return 0
	}
	return s.sess.totalSeconds()
}

// Position is the playing offset in seconds: the samples of every finished
// buffer plus the offset into the queue.
func (s *Streaming) Position() float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	sess := s.sess
	if sess == nil {
		return 0
	}
	total := sess.totalSeconds()
	var pos float64
	if samples := sess.totalSamples(); samples > 0 {
		pos = timing.ToSeconds(sess.ring.Position(), total, samples)
	}
	if off, err := sess.api.SecOffset(sess.source); err == nil {
		pos += float64(off)
	}
	return timing.Clamp(pos, total)
}
