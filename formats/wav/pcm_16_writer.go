// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// framesPerWrite bounds the int buffer handed to the encoder.
const framesPerWrite = 8192

const pcmFormat = 1

// WriteWAV16 writes interleaved 16-bit PCM samples as a WAV file. The
// header sizes are patched on completion, hence the io.WriteSeeker.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if channels <= 0 || len(samples)%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrInvalidChannels, len(samples), channels)
	}

	enc := gowav.NewEncoder(w, sampleRate, 16, channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	step := framesPerWrite * channels
	data := make([]int, 0, min(len(samples), step))

	// an empty write still emits the header and data chunk
	for i := 0; i == 0 || i < len(samples); i += step {
		chunk := samples[i:min(i+step, len(samples))]
		data = data[:len(chunk)]
		for j, s := range chunk {
			data[j] = int(s)
		}
		buf.Data = data
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav: write: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: close: %w", err)
	}
	return nil
}
