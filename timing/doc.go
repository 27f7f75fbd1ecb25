// SPDX-License-Identifier: EPL-2.0

// Package timing converts between positions measured in seconds and
// positions measured in samples.
//
// All conversions are plain linear interpolation:
//
//	result = toStart + (toStop - toStart) * (value - fromStart) / (fromStop - fromStart)
//
// Conversions into samples truncate, conversions into seconds keep the
// fraction. Nothing here clamps; callers clamp seconds with Clamp before
// converting.
//
// AudioTime is the value type handed to users for lengths and positions:
//
//	length := timing.NewAudioTime(185.5)
//	fmt.Println(length)          // 03:05.500
//	fmt.Println(length.Minutes()) // 3.0916667
package timing
