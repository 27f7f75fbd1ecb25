//go:build headless

// SPDX-License-Identifier: EPL-2.0

package softal

func registerHardware(*Driver) {}
