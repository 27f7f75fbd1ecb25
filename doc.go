// SPDX-License-Identifier: EPL-2.0

// Package audstream plays audio files through a native audio API,
// streaming them from the decoder in small chunks.
//
// # Playing a file
//
// A Sound plays one file on the output chosen by a device.Manager:
//
//	mgr := device.NewManager(softal.NewDriver(44100))
//	if err := mgr.Init(""); err != nil {
//		return err
//	}
//	snd, err := audstream.New(mgr, "music.ogg")
//	if err != nil {
//		return err
//	}
//	defer snd.Close()
//	snd.Play()
//
// Only ".ogg" (Vorbis) and ".mp3" files are accepted by default; other
// decoders can be installed with WithRegistry.
//
// # Buffers
//
// By default a Sound streams: a background goroutine keeps four native
// buffers queued and refills them as they finish, pacing itself by the
// playback speed. WithBufferType(Full) decodes the whole file up front
// instead.
//
// # Device changes
//
// Calling device.Manager.Change moves every open Sound to the new output.
// Each one records its state, releases its native source, and once the new
// device is live rebuilds the source and restores volume, speed, position,
// the loop flag and whether it was playing. Calls made in between are
// ignored.
//
// # Errors
//
// Errors match the categories in package audio with errors.Is:
// audio.ErrConfiguration, audio.ErrNotFound, audio.ErrNotInitialized,
// audio.ErrDevice and audio.ErrNative. Methods of a closed Sound return
// audio.ErrDisposed. Failures of the streaming goroutine are published on
// device.Manager.Errors and stop that sound.
//
// # Rendering
//
// ResampleToMono16 and WriteMono16 turn any audio.Source into mono 16-bit
// PCM, for example the recording of a softal capture output.
package audstream
