// SPDX-License-Identifier: EPL-2.0

// Package formats wires the bundled decoders into an audio.Registry.
package formats

import (
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/formats/mp3"
	"github.com/ik5/audstream/formats/vorbis"
)

// NewRegistry returns a registry for ".mp3" and ".ogg". byteChunk sizes the
// MP3 chunks in bytes and floatChunk the Vorbis chunks in values; zero
// selects each decoder's default.
func NewRegistry(byteChunk, floatChunk int) *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register(".mp3", mp3.Decoder{ChunkSize: byteChunk})
	reg.Register(".ogg", vorbis.Decoder{ChunkSize: floatChunk})
	return reg
}

// Default is NewRegistry with the decoder default chunk sizes.
func Default() *audio.Registry {
	return NewRegistry(0, 0)
}
