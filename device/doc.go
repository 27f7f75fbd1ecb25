// SPDX-License-Identifier: EPL-2.0

// Package device coordinates the output device shared by every playback
// handle: it opens the native context, and on a device swap announces the
// teardown and the rebuild so each handle can release and recreate its
// sources around it.
package device
