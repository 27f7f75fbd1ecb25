// SPDX-License-Identifier: EPL-2.0

// Package cli holds the audstream command tree.
package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/caarlos0/ctrlc"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ik5/audstream"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/config"
	"github.com/ik5/audstream/softal"
)

const envPrefix = "AUDSTREAM"

// app is the state shared by the subcommands of one command tree.
type app struct {
	v *viper.Viper

	cfg    *config.Config
	logger *log.Logger

	// registry replaces the bundled decoders when set.
	registry  *audio.Registry
	outputs   map[string]softal.OutputFunc
	interrupt *ctrlc.Ctrlc
}

// Option adjusts the command tree, mostly for tests.
type Option func(*app)

// WithRegistry makes every command decode through r.
func WithRegistry(r *audio.Registry) Option {
	return func(a *app) { a.registry = r }
}

// WithOutput adds a named output to the driver the commands open.
func WithOutput(name string, fn softal.OutputFunc) Option {
	return func(a *app) { a.outputs[name] = fn }
}

// NewRootCommand builds the audstream command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		v:         viper.New(),
		outputs:   make(map[string]softal.OutputFunc),
		interrupt: ctrlc.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "audstream",
		Short: "Stream audio files to an output device",
		Long: `audstream plays .ogg and .mp3 files through a small ring of native
buffers that is refilled while the sound plays. The output device can be
swapped during playback without losing the position.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "audstream.yaml", "configuration file")
	flags.String("device", "", "output device, empty for the default one")
	flags.String("buffer-type", "", `buffer to play through: "stream" or "full"`)
	flags.Int("sample-rate", 0, "mixing rate of the output")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text, json or logfmt")

	for _, name := range []string{"config", "device", "buffer-type", "sample-rate", "log-level", "log-format"} {
		// the flags are registered above, binding cannot fail
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.playCommand(),
		a.renderCommand(),
		a.devicesCommand(),
		a.configCommand(),
	)
	return root
}

// Execute runs the command tree on the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// setup loads the configuration file, lays flags and environment over it
// and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return err
	}

	if a.v.IsSet("device") {
		cfg.Device = a.v.GetString("device")
	}
	if a.v.IsSet("buffer-type") {
		cfg.BufferType = a.v.GetString("buffer-type")
	}
	if a.v.IsSet("sample-rate") {
		cfg.Output.SampleRate = a.v.GetInt("sample-rate")
	}
	if a.v.IsSet("log-level") {
		cfg.Log.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("log-format") {
		cfg.Log.Format = a.v.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) driver() *softal.Driver {
	drv := softal.NewDriver(a.cfg.Output.SampleRate, softal.WithLogger(a.logger))
	for name, fn := range a.outputs {
		drv.Register(name, fn)
	}
	return drv
}

func (a *app) soundOptions() ([]audstream.Option, error) {
	opts, err := a.cfg.SoundOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, audstream.WithLogger(a.logger))
	if a.registry != nil {
		opts = append(opts, audstream.WithRegistry(a.registry))
	}
	return opts, nil
}

// run executes task until it returns, ctx ends or the process is
// interrupted. An interrupt or the end of ctx is a normal stop.
func (a *app) run(ctx context.Context, task ctrlc.Task) error {
	err := a.interrupt.Run(ctx, task)

	var sig ctrlc.ErrorCtrlC
	switch {
	case errors.As(err, &sig):
		a.logger.Info("interrupted")
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	}
	return err
}
