// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files into float32 streams for the
// playback engine.
//
// It wraps github.com/jfreymuth/oggvorbis. Mono files report
// audio.FormatMonoFloat32 and stereo files audio.FormatStereoFloat32;
// other channel layouts are rejected with audio.ErrUnsupportedFormat.
//
// Positions are counted in interleaved values: one second of 48 kHz stereo
// spans 96000 positions. SeekSample rounds down to the containing frame.
package vorbis
