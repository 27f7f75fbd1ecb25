// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 files into byte streams for the playback engine.
//
// It wraps github.com/hajimehoshi/go-mp3, which always produces signed
// 16-bit little-endian stereo PCM. The stream therefore reports
// audio.FormatStereo16 regardless of the channel layout of the file.
//
//	stream, err := mp3.Decoder{ChunkSize: 16384}.Decode(file)
//	chunk, err := stream.(audio.SampleStream[byte]).ReadSamples()
//
// Positions are counted in bytes per channel, so one second of 44.1 kHz
// audio spans 88200 positions. SeekSample aligns to a whole frame.
package mp3
