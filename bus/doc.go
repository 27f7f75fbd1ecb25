// SPDX-License-Identifier: EPL-2.0

// Package bus is a small typed publish/subscribe hub. Playback handles
// send commands to their engine through a Topic, the device manager
// announces device changes through Topics, and the loop state is fetched
// with a Query.
//
// Delivery is synchronous: Publish returns after every handler ran.
package bus
