// SPDX-License-Identifier: EPL-2.0

// Package buffer moves decoded audio into native buffers.
//
// Streaming keeps a small Ring of buffers queued on one source and refills
// the ones the source finished from a background goroutine, so memory use
// does not depend on the length of the file. Full decodes the whole file
// into a single buffer instead and leaves looping and seeking to the
// native source.
//
// Both take their commands from a Channels value and ignore every command
// that does not name their current source. After a device change the
// source is recreated under a new id, so commands sent to the old one are
// dropped.
//
// Positions are counted in the unit of the stream format: bytes per
// channel for integer formats, interleaved values for float formats.
package buffer
