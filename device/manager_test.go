// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/softal"
)

func newManager(t *testing.T) (*Manager, *softal.Driver) {
	t.Helper()

	drv := softal.NewDriver(8000, softal.WithDefault("capture"))
	drv.Register("spare", softal.NewCapture(nil))
	m := NewManager(drv, WithLogger(log.New(io.Discard)))
	t.Cleanup(func() { m.Close() })
	return m, drv
}

func TestManager_InitDefault(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	assert.Equal(t, Uninitialized, m.State())
	assert.Nil(t, m.Context())

	require.NoError(t, m.Init(""))
	assert.Equal(t, Initialized, m.State())
	assert.Equal(t, "capture", m.Current())
	require.NotNil(t, m.Context())
	assert.Equal(t, "capture", m.Context().Device())
}

func TestManager_InitIdempotent(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	require.NoError(t, m.Init("capture"))
	ctx := m.Context()

	changes := 0
	m.Changing().Subscribe(func(Change) { changes++ })

	require.NoError(t, m.Init("capture"))
	require.NoError(t, m.Init(""))
	assert.Same(t, ctx, m.Context())
	assert.Zero(t, changes)
}

func TestManager_InitUnknown(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	err := m.Init("hdmi")
	assert.ErrorIs(t, err, audio.ErrDeviceNotFound)
	assert.Equal(t, Uninitialized, m.State())
}

func TestManager_Change(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	require.NoError(t, m.Init("capture"))
	old := m.Context()

	var events []string
	m.Changing().Subscribe(func(c Change) {
		events = append(events, "changing "+c.From+"->"+c.To)
		assert.Equal(t, Changing, m.State())
		assert.Nil(t, m.Context(), "no context while changing")

		// the old context is handed over and still usable for teardown
		assert.Same(t, old, c.Context)
		_, err := c.Context.GenSource()
		assert.NoError(t, err)
	})
	m.Changed().Subscribe(func(c Change) {
		events = append(events, "changed "+c.To)
		assert.Nil(t, c.Context)
		assert.Equal(t, Initialized, m.State())
		assert.Equal(t, "spare", m.Context().Device())
	})

	require.NoError(t, m.Change("spare"))
	assert.Equal(t, []string{"changing capture->spare", "changed spare"}, events)
	assert.Equal(t, "spare", m.Current())

	_, err := old.GenSource()
	assert.ErrorIs(t, err, audio.ErrNative, "old context is closed")
}

func TestManager_ChangeErrors(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	assert.ErrorIs(t, m.Change("spare"), audio.ErrNotInitialized)

	require.NoError(t, m.Init(""))
	fired := false
	m.Changing().Subscribe(func(Change) { fired = true })

	err := m.Change("hdmi")
	assert.ErrorIs(t, err, audio.ErrDeviceNotFound)
	assert.ErrorIs(t, err, audio.ErrDevice)
	assert.False(t, fired, "validation happens before changing fires")
	assert.Equal(t, Initialized, m.State())
}

func TestManager_ChangeOpenFailure(t *testing.T) {
	t.Parallel()

	m, drv := newManager(t)
	drv.Register("flaky", func(int) (softal.Output, error) { return nil, errors.New("unplugged") })
	require.NoError(t, m.Init(""))

	var reported []error
	m.Errors().Subscribe(func(err error) { reported = append(reported, err) })
	changed := false
	m.Changed().Subscribe(func(Change) { changed = true })

	err := m.Change("flaky")
	require.ErrorIs(t, err, audio.ErrDevice)
	assert.False(t, changed)
	assert.Equal(t, Uninitialized, m.State())
	require.Len(t, reported, 1)

	require.NoError(t, m.Init("spare"), "manager recovers with Init")
}

func TestManager_InitSwitchesDevice(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	require.NoError(t, m.Init("capture"))

	var got Change
	m.Changed().Subscribe(func(c Change) { got = c })
	require.NoError(t, m.Init("spare"))
	assert.Equal(t, Change{From: "capture", To: "spare"}, got)
}

func TestManager_ReportError(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	var got error
	m.Errors().Subscribe(func(err error) { got = err })

	m.ReportError(nil)
	assert.NoError(t, got)

	want := &native.Error{Op: "queue buffers", Code: native.InvalidName}
	m.ReportError(want)
	assert.ErrorIs(t, got, audio.ErrNative)
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	require.NoError(t, m.Close())
	require.NoError(t, m.Init(""))
	require.NoError(t, m.Close())
	assert.Equal(t, Uninitialized, m.State())
	assert.Empty(t, m.Current())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "changing", Changing.String())
	assert.Equal(t, "state(7)", State(7).String())
}
