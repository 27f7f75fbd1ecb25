// SPDX-License-Identifier: EPL-2.0

package utils

// FullScale16 is the magnitude a sample of 1.0 maps to in 16-bit PCM. Both
// signs use it, so -1.0 becomes -32767 and not math.MinInt16.
const FullScale16 = 32767

// Float32ToInt16 converts a [-1, 1] float sample to 16-bit PCM, clipping
// anything outside the range.
func Float32ToInt16(x float32) int16 {
	return int16(min(max(x, -1), 1) * FullScale16)
}
