// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audstream"
	"github.com/ik5/audstream/device"
	"github.com/ik5/audstream/native"
	"github.com/ik5/audstream/timing"
)

type playFlags struct {
	loop     bool
	volume   float32
	speed    float32
	seek     float64
	duration time.Duration
	progress time.Duration

	switchTo    string
	switchAfter time.Duration
}

func (a *app) playCommand() *cobra.Command {
	f := &playFlags{}

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a file until it ends or Ctrl-C is pressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.loop, "loop", false, "start over when the end is reached")
	flags.Float32Var(&f.volume, "volume", audstream.MaxVolume, "volume from 0 to 100")
	flags.Float32Var(&f.speed, "speed", 1, "playback speed, 0.25 to 2")
	flags.Float64Var(&f.seek, "seek", 0, "start position in seconds")
	flags.DurationVar(&f.duration, "duration", 0, "stop after this long, 0 plays to the end")
	flags.DurationVar(&f.progress, "progress", time.Second, "how often the position is logged")
	flags.StringVar(&f.switchTo, "switch-to", "", "output device to move to during playback")
	flags.DurationVar(&f.switchAfter, "switch-after", 2*time.Second, "when --switch-to takes effect")
	return cmd
}

func (a *app) play(ctx context.Context, path string, f *playFlags) error {
	mgr := device.NewManager(a.driver(), device.WithLogger(a.logger))
	if err := mgr.Init(a.cfg.Device); err != nil {
		return err
	}
	defer mgr.Close()

	opts, err := a.soundOptions()
	if err != nil {
		return err
	}
	s, err := audstream.New(mgr, path, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := prepare(s, f); err != nil {
		return err
	}
	if err := s.Play(); err != nil {
		return err
	}
	a.logger.Info("playing", "file", path, "device", mgr.Current(), "length", s.Length(), "sound", s.ID())

	if f.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.duration)
		defer cancel()
	}
	return a.run(ctx, func() error {
		return a.watch(ctx, mgr, s, f)
	})
}

func prepare(s *audstream.Sound, f *playFlags) error {
	if err := s.SetVolume(f.volume); err != nil {
		return fmt.Errorf("volume: %w", err)
	}
	if err := s.SetSpeed(f.speed); err != nil {
		return fmt.Errorf("speed: %w", err)
	}
	if err := s.SetLooping(f.loop); err != nil {
		return fmt.Errorf("loop: %w", err)
	}
	if f.seek > 0 {
		if err := s.SetPosition(f.seek); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}
	return nil
}

// watch waits for the sound to finish. Playback errors end it, and the
// device is swapped once when --switch-to is given.
func (a *app) watch(ctx context.Context, mgr *device.Manager, s *audstream.Sound, f *playFlags) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// handlers run on the publisher's goroutine, which may hold the sound
	failures := make(chan error, 1)
	sub := mgr.Errors().Subscribe(func(err error) {
		select {
		case failures <- err:
		default:
		}
	})
	defer sub.Unsubscribe()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		return a.progress(gctx, s, f)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-failures:
			return fmt.Errorf("playback: %w", err)
		}
	})

	if f.switchTo != "" {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(f.switchAfter):
			}
			a.logger.Info("switching device", "from", mgr.Current(), "to", f.switchTo)
			return mgr.Change(f.switchTo)
		})
	}

	err := g.Wait()
	select {
	case failed := <-failures:
		if err == nil {
			err = fmt.Errorf("playback: %w", failed)
		}
	default:
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// progress logs the position every f.progress and returns once the sound
// has left the playing state. A looping sound plays until ctx ends.
func (a *app) progress(ctx context.Context, s *audstream.Sound, f *playFlags) error {
	poll := time.NewTicker(20 * time.Millisecond)
	defer poll.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-poll.C:
			if state := s.State(); !f.loop && (state == native.Initial || state == native.Stopped) {
				a.logger.Info("finished", "sound", s.ID())
				return nil
			}
			if f.progress > 0 && now.Sub(last) >= f.progress {
				last = now
				a.logger.Info("position",
					"at", timing.NewAudioTime(float32(s.Position())),
					"of", s.Length())
			}
		}
	}
}
