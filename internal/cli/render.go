// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ik5/audstream"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/device"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/softal"
)

const renderDevice = "render"

type renderFlags struct {
	out    string
	rate   int
	frames int
	volume float32
	speed  float32
	seek   float64
}

func (a *app) renderCommand() *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Play a file into a mono 16-bit WAV file as fast as possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := f.out
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".wav"
			}
			return a.render(cmd.Context(), args[0], out, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.out, "out", "o", "", "WAV file to write, FILE with a .wav extension by default")
	flags.IntVar(&f.rate, "rate", 16000, "sample rate of the WAV file")
	flags.IntVar(&f.frames, "frames", 1024, "frames mixed per pull")
	flags.Float32Var(&f.volume, "volume", audstream.MaxVolume, "volume from 0 to 100")
	flags.Float32Var(&f.speed, "speed", 1, "playback speed, 0.25 to 2")
	flags.Float64Var(&f.seek, "seek", 0, "start position in seconds")
	return cmd
}

// render plays path on a capture output that is pulled in a loop, so the
// mixer runs faster than real time. The whole file is decoded up front
// because the pull loop would outrun the streaming refills.
func (a *app) render(ctx context.Context, path, out string, f *renderFlags) error {
	if f.rate <= 0 || f.frames <= 0 {
		return fmt.Errorf("%w: render needs a positive --rate and --frames", audio.ErrConfiguration)
	}

	var capture *softal.Capture
	drv := a.driver()
	drv.Register(renderDevice, softal.NewCapture(func(c *softal.Capture) { capture = c }))

	mgr := device.NewManager(drv, device.WithLogger(a.logger))
	if err := mgr.Init(renderDevice); err != nil {
		return err
	}
	defer mgr.Close()

	opts, err := a.soundOptions()
	if err != nil {
		return err
	}
	opts = append(opts, audstream.WithBufferType(audstream.Full))
	s, err := audstream.New(mgr, path, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	prep := &playFlags{volume: f.volume, speed: f.speed, seek: f.seek}
	if err := prepare(s, prep); err != nil {
		return err
	}
	if err := s.Play(); err != nil {
		return err
	}

	err = a.run(ctx, func() error {
		for ctx.Err() == nil {
			if state := s.State(); state != native.Playing {
				return nil
			}
			if _, err := capture.Pull(f.frames); err != nil {
				return fmt.Errorf("render: %w", err)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	rec := capture.Recording()
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := audstream.WriteMono16(file, rec, f.rate); err != nil {
		file.Close()
		return fmt.Errorf("render %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	a.logger.Info("rendered", "file", path, "out", out, "frames", rec.Frames(), "rate", f.rate)
	return nil
}
