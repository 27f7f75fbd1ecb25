// SPDX-License-Identifier: EPL-2.0

package softal

import (
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/utils"
)

// OutputChannels is the channel count the mixer renders.
const OutputChannels = 2

type buffer struct {
	rate     int
	channels int
	data     []float32 // interleaved, channels wide
	queuedOn native.SourceID
}

func (b *buffer) frames() int {
	if b.channels == 0 {
		return 0
	}
	return len(b.data) / b.channels
}

// at returns frame i of channel c, holding the edge values outside the
// buffer.
func (b *buffer) at(i, c int) float32 {
	i = max(0, min(i, b.frames()-1))
	return b.data[i*b.channels+c%b.channels]
}

type source struct {
	state     native.SourceState
	queue     []native.BufferID
	processed int
	cursor    float64 // fractional frame within queue[processed]
	gain      float32
	pitch     float32
	looping   bool

	// seeked keeps an offset set on a stopped source for the next Play.
	seeked bool
}

// Context is a software native.Context. Sources are mixed to stereo
// float32 at the device rate whenever the attached output pulls audio.
type Context struct {
	mtx *sync.Mutex

	device string
	rate   int
	out    Output

	sources map[native.SourceID]*source
	buffers map[native.BufferID]*buffer
	closed  bool

	scratch []float32
}

var _ native.Context = (*Context)(nil)

func newContext(device string, rate int) *Context {
	return &Context{
		mtx:     &sync.Mutex{},
		device:  device,
		rate:    rate,
		sources: make(map[native.SourceID]*source),
		buffers: make(map[native.BufferID]*buffer),
	}
}

func (c *Context) Device() string  { return c.device }
func (c *Context) SampleRate() int { return c.rate }

// Close detaches the output. Every call afterwards fails with
// InvalidOperation.
func (c *Context) Close() error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return nil
	}
	c.closed = true
	out := c.out
	c.out = nil
	c.mtx.Unlock()

	if out != nil {
		return out.Close()
	}
	return nil
}

// names are unique per process, so a source rebuilt on another device
// never reuses the id of the one it replaces.
var names atomic.Uint32

func (c *Context) id() uint32 {
	return names.Add(1)
}

func (c *Context) live(op string) error {
	if c.closed {
		return native.Errorf(native.InvalidOperation, "%s: context closed", op)
	}
	return nil
}

func (c *Context) source(op string, id native.SourceID) (*source, error) {
	if err := c.live(op); err != nil {
		return nil, err
	}
	s, ok := c.sources[id]
	if !ok {
		return nil, native.Errorf(native.InvalidName, "%s: source %d", op, id)
	}
	return s, nil
}

func (c *Context) buffer(op string, id native.BufferID) (*buffer, error) {
	if err := c.live(op); err != nil {
		return nil, err
	}
	b, ok := c.buffers[id]
	if !ok {
		return nil, native.Errorf(native.InvalidName, "%s: buffer %d", op, id)
	}
	return b, nil
}

func (c *Context) GenSource() (native.SourceID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.live("gen source"); err != nil {
		return 0, err
	}
	id := native.SourceID(c.id())
	c.sources[id] = &source{gain: 1, pitch: 1}
	return id, nil
}

// DeleteSource detaches every queued buffer and forgets the source.
func (c *Context) DeleteSource(id native.SourceID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("delete source", id)
	if err != nil {
		return err
	}
	for _, bid := range s.queue {
		if b, ok := c.buffers[bid]; ok {
			b.queuedOn = 0
		}
	}
	delete(c.sources, id)
	return nil
}

func (c *Context) GenBuffers(n int) ([]native.BufferID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.live("gen buffers"); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, native.Errorf(native.InvalidValue, "gen buffers: count %d", n)
	}
	ids := make([]native.BufferID, n)
	for i := range ids {
		ids[i] = native.BufferID(c.id())
		c.buffers[ids[i]] = &buffer{}
	}
	return ids, nil
}

func (c *Context) DeleteBuffers(ids ...native.BufferID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	for _, id := range ids {
		b, err := c.buffer("delete buffers", id)
		if err != nil {
			return err
		}
		if b.queuedOn != 0 {
			return native.Errorf(native.InvalidOperation, "delete buffers: buffer %d queued on source %d", id, b.queuedOn)
		}
	}
	for _, id := range ids {
		delete(c.buffers, id)
	}
	return nil
}

func (c *Context) writable(op string, id native.BufferID, format audio.Format, rate int) (*buffer, error) {
	b, err := c.buffer(op, id)
	if err != nil {
		return nil, err
	}
	if b.queuedOn != 0 {
		return nil, native.Errorf(native.InvalidOperation, "%s: buffer %d is queued", op, id)
	}
	if !format.Valid() {
		return nil, native.Errorf(native.InvalidEnum, "%s: %v", op, format)
	}
	if rate <= 0 {
		return nil, native.Errorf(native.InvalidValue, "%s: sample rate %d", op, rate)
	}
	return b, nil
}

// BufferData converts 8-bit unsigned or 16-bit signed little-endian PCM to
// float32 and stores it in the buffer.
func (c *Context) BufferData(id native.BufferID, format audio.Format, data []byte, rate int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	b, err := c.writable("buffer data", id, format, rate)
	if err != nil {
		return err
	}
	if format.IsFloat() {
		return native.Errorf(native.InvalidEnum, "buffer data: %v needs float data", format)
	}

	width := format.BytesPerSample()
	samples := make([]float32, len(data)/width)
	switch width {
	case 1:
		for i := range samples {
			samples[i] = (float32(data[i]) - 128) / 128
		}
	case 2:
		for i := range samples {
			samples[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768
		}
	}

	b.set(format, samples, rate)
	return nil
}

func (c *Context) BufferFloatData(id native.BufferID, format audio.Format, data []float32, rate int) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	b, err := c.writable("buffer float data", id, format, rate)
	if err != nil {
		return err
	}
	if !format.IsFloat() {
		return native.Errorf(native.InvalidEnum, "buffer float data: %v needs byte data", format)
	}

	b.set(format, append([]float32(nil), data...), rate)
	return nil
}

func (b *buffer) set(format audio.Format, samples []float32, rate int) {
	b.channels = format.Channels()
	b.data = samples[:len(samples)-len(samples)%b.channels]
	b.rate = rate
}

func (c *Context) QueueBuffers(src native.SourceID, ids ...native.BufferID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("queue buffers", src)
	if err != nil {
		return err
	}
	for _, id := range ids {
		b, err := c.buffer("queue buffers", id)
		if err != nil {
			return err
		}
		if b.queuedOn != 0 {
			return native.Errorf(native.InvalidOperation, "queue buffers: buffer %d already queued on source %d", id, b.queuedOn)
		}
	}
	for _, id := range ids {
		c.buffers[id].queuedOn = src
	}
	s.queue = append(s.queue, ids...)
	return nil
}

func (c *Context) UnqueueBuffers(src native.SourceID, n int) ([]native.BufferID, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("unqueue buffers", src)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > s.processed {
		return nil, native.Errorf(native.InvalidValue, "unqueue buffers: %d requested, %d processed", n, s.processed)
	}

	ids := append([]native.BufferID(nil), s.queue[:n]...)
	for _, id := range ids {
		if b, ok := c.buffers[id]; ok {
			b.queuedOn = 0
		}
	}
	s.queue = append(s.queue[:0], s.queue[n:]...)
	s.processed -= n
	return ids, nil
}

// Play starts an initial or stopped source from the head of its queue, or
// from the offset set on it since it stopped, and resumes a paused one.
// Playing sources are left alone.
func (c *Context) Play(id native.SourceID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("play", id)
	if err != nil {
		return err
	}
	switch s.state {
	case native.Playing:
		return nil
	case native.Initial, native.Stopped:
		if !s.seeked {
			s.processed = 0
			s.cursor = 0
		}
	}
	s.seeked = false
	s.state = native.Playing
	return nil
}

func (c *Context) Pause(id native.SourceID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("pause", id)
	if err != nil {
		return err
	}
	if s.state == native.Playing {
		s.state = native.Paused
	}
	return nil
}

// Stop marks every queued buffer processed.
func (c *Context) Stop(id native.SourceID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("stop", id)
	if err != nil {
		return err
	}
	s.state = native.Stopped
	s.processed = len(s.queue)
	s.cursor = 0
	s.seeked = false
	return nil
}

func (c *Context) Rewind(id native.SourceID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("rewind", id)
	if err != nil {
		return err
	}
	s.state = native.Initial
	s.processed = 0
	s.cursor = 0
	s.seeked = false
	return nil
}

func (c *Context) SourceState(id native.SourceID) (native.SourceState, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("source state", id)
	if err != nil {
		return native.Initial, err
	}
	return s.state, nil
}

func (c *Context) BuffersProcessed(id native.SourceID) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("buffers processed", id)
	if err != nil {
		return 0, err
	}
	return s.processed, nil
}

func (c *Context) BuffersQueued(id native.SourceID) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("buffers queued", id)
	if err != nil {
		return 0, err
	}
	return len(s.queue), nil
}

func (c *Context) Gain(id native.SourceID) (float32, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("gain", id)
	if err != nil {
		return 0, err
	}
	return s.gain, nil
}

func (c *Context) SetGain(id native.SourceID, gain float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("set gain", id)
	if err != nil {
		return err
	}
	if gain < 0 {
		return native.Errorf(native.InvalidValue, "set gain: %v", gain)
	}
	s.gain = gain
	return nil
}

func (c *Context) Pitch(id native.SourceID) (float32, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("pitch", id)
	if err != nil {
		return 0, err
	}
	return s.pitch, nil
}

func (c *Context) SetPitch(id native.SourceID, pitch float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("set pitch", id)
	if err != nil {
		return err
	}
	if pitch <= 0 {
		return native.Errorf(native.InvalidValue, "set pitch: %v", pitch)
	}
	s.pitch = pitch
	return nil
}

// SecOffset counts from the head of the queue, processed buffers included.
func (c *Context) SecOffset(id native.SourceID) (float32, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("sec offset", id)
	if err != nil {
		return 0, err
	}

	var secs float64
	for i, bid := range s.queue {
		b := c.buffers[bid]
		if b == nil || b.rate == 0 {
			continue
		}
		switch {
		case i < s.processed:
			secs += float64(b.frames()) / float64(b.rate)
		case i == s.processed:
			secs += s.cursor / float64(b.rate)
		}
	}
	return float32(secs), nil
}

func (c *Context) SetSecOffset(id native.SourceID, secs float32) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("set sec offset", id)
	if err != nil {
		return err
	}
	if secs < 0 {
		return native.Errorf(native.InvalidValue, "set sec offset: %v", secs)
	}

	remaining := float64(secs)
	for i, bid := range s.queue {
		b := c.buffers[bid]
		if b == nil || b.rate == 0 {
			continue
		}
		length := float64(b.frames()) / float64(b.rate)
		if remaining < length {
			s.processed = i
			s.cursor = remaining * float64(b.rate)
			s.seeked = s.state == native.Initial || s.state == native.Stopped
			return nil
		}
		remaining -= length
	}
	// the very end of the queue is a valid offset
	if remaining < 1e-6 {
		s.processed = len(s.queue)
		s.cursor = 0
		s.seeked = s.state == native.Initial || s.state == native.Stopped
		return nil
	}
	return native.Errorf(native.InvalidValue, "set sec offset: %v past queued audio", secs)
}

func (c *Context) Looping(id native.SourceID) (bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("looping", id)
	if err != nil {
		return false, err
	}
	return s.looping, nil
}

func (c *Context) SetLooping(id native.SourceID, looping bool) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	s, err := c.source("set looping", id)
	if err != nil {
		return err
	}
	s.looping = looping
	return nil
}

// Mix renders len(dst)/2 stereo frames of every playing source into dst,
// overwriting it. Sources that run out of queued audio stop.
func (c *Context) Mix(dst []float32) {
	clear(dst)

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.closed {
		return
	}
	for _, s := range c.sources {
		if s.state == native.Playing {
			c.mixSource(s, dst)
		}
	}
}

func (c *Context) mixSource(s *source, dst []float32) {
	frames := len(dst) / OutputChannels
	for f := 0; f < frames; {
		if s.processed >= len(s.queue) {
			if !s.looping || len(s.queue) == 0 {
				s.state = native.Stopped
				return
			}
			s.processed = 0
			s.cursor = 0
		}

		b := c.buffers[s.queue[s.processed]]
		n := 0
		if b != nil {
			n = b.frames()
		}
		if s.cursor >= float64(n) {
			s.cursor -= float64(n)
			if n == 0 {
				s.cursor = 0
			}
			s.processed++
			continue
		}

		i := int(s.cursor)
		x := float32(s.cursor - float64(i))
		for ch := range OutputChannels {
			v := utils.CubicInterpolate(b.at(i-1, ch), b.at(i, ch), b.at(i+1, ch), b.at(i+2, ch), x)
			dst[f*OutputChannels+ch] += v * s.gain
		}

		s.cursor += float64(s.pitch) * float64(b.rate) / float64(c.rate)
		f++
	}
}

// Read renders float32 little-endian stereo frames into p. It never fails
// and never returns a short read.
func (c *Context) Read(p []byte) (int, error) {
	values := len(p) / 4
	if cap(c.scratch) < values {
		c.scratch = make([]float32, values)
	}
	samples := c.scratch[:values]
	clear(samples)
	c.Mix(samples[:values-values%OutputChannels])
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	clear(p[4*values:])
	return len(p), nil
}
