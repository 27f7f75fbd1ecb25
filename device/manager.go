// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/bus"
	"github.com/ik5/audstream/native"
)

// State of the output device.
type State int

const (
	Uninitialized State = iota
	Initialized
	Changing
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Changing:
		return "changing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Change describes a device swap. From is empty on the first Init.
type Change struct {
	From string
	To   string

	// Context is the context being released. It is set on Changing only
	// and stays usable until every Changing handler has returned.
	Context native.Context
}

// Manager owns the process wide output context. Changing fires before the
// old context is torn down and Changed once the new one is live; between
// the two no native handle may be assumed valid.
//
// Init, Change and Close are expected to be called from one goroutine.
type Manager struct {
	mtx *sync.Mutex

	driver  native.Driver
	ctx     native.Context
	current string
	state   State

	changing *bus.Topic[Change]
	changed  *bus.Topic[Change]
	errors   *bus.Topic[error]

	logger *log.Logger
}

type Option func(*Manager)

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(driver native.Driver, opts ...Option) *Manager {
	m := &Manager{
		mtx:      &sync.Mutex{},
		driver:   driver,
		changing: bus.NewTopic[Change](),
		changed:  bus.NewTopic[Change](),
		errors:   bus.NewTopic[error](),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithPrefix("device")
	return m
}

func (m *Manager) Changing() *bus.Topic[Change] { return m.changing }
func (m *Manager) Changed() *bus.Topic[Change]  { return m.changed }

// Errors carries failures raised away from the caller, such as those of a
// streaming loop.
func (m *Manager) Errors() *bus.Topic[error] { return m.errors }

// ReportError logs err and publishes it on Errors.
func (m *Manager) ReportError(err error) {
	if err == nil {
		return
	}
	m.logger.Error("playback failed", "err", err)
	m.errors.Publish(err)
}

func (m *Manager) State() State {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.state
}

// Current is the name of the open device, empty when none is open.
func (m *Manager) Current() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.current
}

// Context is the live native context, nil unless Initialized.
func (m *Manager) Context() native.Context {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.state != Initialized {
		return nil
	}
	return m.ctx
}

// Devices lists the outputs the driver can open.
func (m *Manager) Devices() ([]string, error) {
	devices, err := m.driver.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: list devices: %w", audio.ErrDevice, err)
	}
	return devices, nil
}

func (m *Manager) resolve(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	name, err := m.driver.DefaultDevice()
	if err != nil {
		return "", fmt.Errorf("%w: default device: %w", audio.ErrDevice, err)
	}
	return name, nil
}

// Init opens name, or the driver default when name is empty. Calling it
// again for the open device does nothing; naming another device switches
// to it through Change.
func (m *Manager) Init(name string) error {
	target, err := m.resolve(name)
	if err != nil {
		return err
	}

	m.mtx.Lock()
	state, current := m.state, m.current
	m.mtx.Unlock()

	switch {
	case state == Initialized && current == target:
		return nil
	case state == Initialized:
		return m.Change(target)
	case state == Changing:
		return fmt.Errorf("%w: change to %q in progress", audio.ErrDevice, current)
	}

	ctx, err := m.driver.Open(target)
	if err != nil {
		return fmt.Errorf("init %q: %w", target, err)
	}

	m.mtx.Lock()
	m.ctx, m.current, m.state = ctx, target, Initialized
	m.mtx.Unlock()

	m.logger.Info("device initialized", "device", target)
	return nil
}

// Change swaps the output to name, which must be one of Devices. Handlers
// on Changing release their native resources; handlers on Changed
// rebuild them on the new context.
func (m *Manager) Change(name string) error {
	m.mtx.Lock()
	state, from, old := m.state, m.current, m.ctx
	m.mtx.Unlock()

	if state != Initialized {
		return fmt.Errorf("change device: %w", audio.ErrNotInitialized)
	}

	devices, err := m.Devices()
	if err != nil {
		return err
	}
	if !slices.Contains(devices, name) {
		return fmt.Errorf("%w: %q", audio.ErrDeviceNotFound, name)
	}

	change := Change{From: from, To: name}
	m.logger.Info("device changing", "from", from, "to", name)

	m.mtx.Lock()
	m.state = Changing
	m.mtx.Unlock()

	leaving := change
	leaving.Context = old
	m.changing.Publish(leaving)

	if err := old.Close(); err != nil {
		m.logger.Warn("closing device", "device", from, "err", err)
	}

	ctx, err := m.driver.Open(name)
	if err != nil {
		m.mtx.Lock()
		m.ctx, m.current, m.state = nil, "", Uninitialized
		m.mtx.Unlock()

		err = fmt.Errorf("change to %q: %w", name, err)
		m.ReportError(err)
		return err
	}

	m.mtx.Lock()
	m.ctx, m.current, m.state = ctx, name, Initialized
	m.mtx.Unlock()

	m.changed.Publish(change)
	m.logger.Info("device changed", "device", name)
	return nil
}

// Close releases the context. The manager can be initialized again.
func (m *Manager) Close() error {
	m.mtx.Lock()
	ctx := m.ctx
	m.ctx, m.current, m.state = nil, "", Uninitialized
	m.mtx.Unlock()

	if ctx == nil {
		return nil
	}
	if err := ctx.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", audio.ErrDevice, err)
	}
	return nil
}
