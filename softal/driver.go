// SPDX-License-Identifier: EPL-2.0

package softal

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/native"
)

// DefaultSampleRate is the mixing rate when none is configured.
const DefaultSampleRate = 44100

// Driver opens software contexts on named outputs.
type Driver struct {
	mtx *sync.Mutex

	rate        int
	outputs     map[string]OutputFunc
	order       []string
	defaultName string
	logger      *log.Logger
}

var _ native.Driver = (*Driver)(nil)

type Option func(*Driver)

// WithLogger sets the logger for device open and close events.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithDefault names the device DefaultDevice reports.
func WithDefault(name string) Option {
	return func(d *Driver) { d.defaultName = name }
}

// NewDriver returns a driver mixing at sampleRate. The "null" and
// "capture" devices are always present; hardware outputs are added unless
// built with the headless tag.
func NewDriver(sampleRate int, opts ...Option) *Driver {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	d := &Driver{
		mtx:     &sync.Mutex{},
		rate:    sampleRate,
		outputs: make(map[string]OutputFunc),
		logger:  log.Default(),
	}
	registerHardware(d)
	d.Register("null", NewNull(10*time.Millisecond))
	d.Register("capture", NewCapture(nil))

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds or replaces a named output.
func (d *Driver) Register(name string, fn OutputFunc) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if _, ok := d.outputs[name]; !ok {
		d.order = append(d.order, name)
	}
	d.outputs[name] = fn
}

func (d *Driver) SampleRate() int { return d.rate }

func (d *Driver) Devices() ([]string, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	return slices.Clone(d.order), nil
}

func (d *Driver) DefaultDevice() (string, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.defaultName != "" {
		return d.defaultName, nil
	}
	if len(d.order) == 0 {
		return "", audio.ErrDeviceNotFound
	}
	return d.order[0], nil
}

func (d *Driver) Open(name string) (native.Context, error) {
	d.mtx.Lock()
	fn, ok := d.outputs[name]
	d.mtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", audio.ErrDeviceNotFound, name)
	}

	out, err := fn(d.rate)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", audio.ErrDevice, name, err)
	}

	ctx := newContext(name, d.rate)
	if err := out.Attach(ctx); err != nil {
		out.Close()
		return nil, fmt.Errorf("%w: attach %q: %w", audio.ErrDevice, name, err)
	}
	ctx.out = out

	d.logger.Debug("device opened", "device", name, "rate", d.rate)
	return ctx, nil
}
