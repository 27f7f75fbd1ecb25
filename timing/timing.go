// SPDX-License-Identifier: EPL-2.0

package timing

// Map linearly interpolates value from the range [fromStart, fromStop] into
// the range [toStart, toStop]. Values outside the source range extrapolate.
// A zero-width source range yields a non-finite result.
func Map(value, fromStart, fromStop, toStart, toStop float64) float64 {
	return toStart + (toStop-toStart)*(value-fromStart)/(fromStop-fromStart)
}

// ToSamples converts a position in seconds into a sample index of a stream
// that is totalSeconds long and holds totalSamples samples. The result is
// truncated toward zero.
func ToSamples(posSeconds, totalSeconds float64, totalSamples int64) int64 {
	return int64(Map(posSeconds, 0, totalSeconds, 0, float64(totalSamples)))
}

// ToSeconds converts a sample index back into seconds.
func ToSeconds(sample int64, totalSeconds float64, totalSamples int64) float64 {
	return Map(float64(sample), 0, float64(totalSamples), 0, totalSeconds)
}

// Clamp limits seconds to [0, total].
func Clamp(seconds, total float64) float64 {
	if seconds < 0 {
		return 0
	}
	if seconds > total {
		return total
	}
	return seconds
}
