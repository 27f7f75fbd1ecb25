// SPDX-License-Identifier: EPL-2.0

// Package audio holds the types shared by the decoders, the playback
// engine and the offline render path.
//
// # Decoder Port
//
// A Decoder turns an io.ReadSeeker into a Stream. The stream reports its
// sample rate, channel count, Format and length, and can be repositioned
// with SeekSample or rewound with Flush. Concrete streams also implement
// SampleStream[byte] or SampleStream[float32]; ReadSamples hands back the
// next chunk and an empty slice once the stream is exhausted.
//
// Positions are counted in the unit implied by the format: bytes per
// channel for byte formats, interleaved values for float formats.
//
//	registry := audio.NewRegistry()
//	registry.Register(".mp3", mp3.Decoder{})
//	stream, err := registry.Open("song.mp3")
//
// Open fails with ErrUnsupportedExtension or ErrFileNotFound before any
// decoding happens.
//
// # Pull Pipeline
//
// Source is the float32 pull interface used when audio is processed
// rather than played. Resampler changes the sample rate with cubic
// interpolation and MonoMixer folds channels into one:
//
//	mono := audio.NewMonoMixer(audio.NewResampler(src, 8000))
//	buf := make([]float32, 4096)
//	n, err := mono.ReadSamples(buf)
//
// ReadSamples returns io.EOF when no more data is available.
//
// # Errors
//
// Every error matches one of ErrConfiguration, ErrNotFound,
// ErrNotInitialized, ErrDevice, ErrNative or ErrDisposed with errors.Is.
package audio
