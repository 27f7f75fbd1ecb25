// SPDX-License-Identifier: EPL-2.0

// Package softal is a pure Go implementation of the native audio port.
//
// A Context keeps OpenAL style sources and buffers and mixes every playing
// source to stereo float32 at the device rate, resampling each buffer with
// cubic interpolation scaled by the source pitch. Outputs pull from the
// mixer:
//
//   - "oto" plays through github.com/ebitengine/oto/v3
//   - "beep" plays through the github.com/gopxl/beep/v2 speaker
//   - "null" pulls in real time and discards
//   - "capture" renders on demand and records
//
// The hardware outputs are left out when building with -tags headless.
package softal
