// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/formats/wav"
	"github.com/ik5/audstream/utils"
)

// ResampleToMono16 drains src through a resampler and a mono downmix and
// returns the result as 16-bit PCM at targetRate. bufferSize is the number
// of samples read per pull.
func ResampleToMono16(src audio.Source, targetRate, bufferSize int) ([]int16, int, error) {
	mono := audio.NewMonoMixer(audio.NewResampler(src, targetRate))

	// room for two seconds before the first grow
	pcm := make([]int16, 0, targetRate*2)
	buf := make([]float32, bufferSize)

	for {
		n, err := mono.ReadSamples(buf)
		for _, x := range buf[:n] {
			pcm = append(pcm, utils.Float32ToInt16(x))
		}

		if errors.Is(err, io.EOF) {
			return pcm, targetRate, nil
		}
		if err != nil {
			return nil, targetRate, fmt.Errorf("resample to mono: %w", err)
		}
	}
}

// WriteMono16 writes src to w as a mono 16-bit WAV file at targetRate.
func WriteMono16(w io.WriteSeeker, src audio.Source, targetRate int) error {
	pcm, rate, err := ResampleToMono16(src, targetRate, 4096)
	if err != nil {
		return err
	}
	return wav.WriteWAV16(w, rate, 1, pcm)
}
