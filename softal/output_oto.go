//go:build !headless

// SPDX-License-Identifier: EPL-2.0

package softal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: OutputChannels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
	})
	if otoErr != nil {
		return nil, fmt.Errorf("oto: %w", otoErr)
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("oto: context already running at %d Hz", otoRate)
	}
	return otoCtx, nil
}

type otoOutput struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOto returns an OutputFunc playing through ebitengine/oto.
func NewOto() OutputFunc {
	return func(sampleRate int) (Output, error) {
		ctx, err := otoContext(sampleRate)
		if err != nil {
			return nil, err
		}
		return &otoOutput{ctx: ctx}, nil
	}
}

func (o *otoOutput) Attach(r Renderer) error {
	reader, ok := r.(io.Reader)
	if !ok {
		return fmt.Errorf("oto: renderer %T cannot be read", r)
	}
	o.player = o.ctx.NewPlayer(reader)
	o.player.Play()
	return nil
}

func (o *otoOutput) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	if err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	return nil
}

var (
	speakerOnce sync.Once
	speakerRate int
	speakerErr  error
)

type beepOutput struct{}

// NewBeep returns an OutputFunc playing through the gopxl/beep speaker.
func NewBeep() OutputFunc {
	return func(sampleRate int) (Output, error) {
		speakerOnce.Do(func() {
			sr := beep.SampleRate(sampleRate)
			speakerErr = speaker.Init(sr, sr.N(time.Second/10))
			speakerRate = sampleRate
		})
		if speakerErr != nil {
			return nil, fmt.Errorf("beep: %w", speakerErr)
		}
		if speakerRate != sampleRate {
			return nil, fmt.Errorf("beep: speaker already running at %d Hz", speakerRate)
		}
		return beepOutput{}, nil
	}
}

func (beepOutput) Attach(r Renderer) error {
	speaker.Play(NewStreamer(r))
	return nil
}

func (beepOutput) Close() error {
	speaker.Clear()
	return nil
}

func registerHardware(d *Driver) {
	d.Register("oto", NewOto())
	d.Register("beep", NewBeep())
}
