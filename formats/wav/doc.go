// SPDX-License-Identifier: EPL-2.0

// Package wav writes 16-bit PCM WAV files through github.com/go-audio/wav.
//
// It is the output end of the offline render path:
//
//	pcm16, rate, _ := audstream.ResampleToMono16(src, 8000, 4096)
//	f, _ := os.Create("out.wav")
//	err := wav.WriteWAV16(f, rate, 1, pcm16)
//
// WriteWAV16 needs an io.WriteSeeker because the RIFF and data chunk sizes
// are patched once all samples are written.
package wav
