// SPDX-License-Identifier: EPL-2.0

// Package native declares the port between the playback engine and an
// OpenAL style audio API: sources, queued buffers and the output device
// they render to. Package softal provides the implementation used at
// runtime and in tests.
package native
