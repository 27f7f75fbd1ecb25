// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Format tags the sample layout of a chunk uploaded to a hardware buffer.
type Format int

const (
	FormatUnknown Format = iota
	FormatMono8
	FormatMono16
	FormatStereo8
	FormatStereo16
	FormatMonoFloat32
	FormatStereoFloat32
)

var formatNames = map[Format]string{
	FormatMono8:         "mono8",
	FormatMono16:        "mono16",
	FormatStereo8:       "stereo8",
	FormatStereo16:      "stereo16",
	FormatMonoFloat32:   "mono-float32",
	FormatStereoFloat32: "stereo-float32",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// Channels returns the channel count of f, or 0 for an unknown format.
func (f Format) Channels() int {
	switch f {
	case FormatMono8, FormatMono16, FormatMonoFloat32:
		return 1
	case FormatStereo8, FormatStereo16, FormatStereoFloat32:
		return 2
	}
	return 0
}

// IsFloat reports whether samples of f are float32 values.
func (f Format) IsFloat() bool {
	return f == FormatMonoFloat32 || f == FormatStereoFloat32
}

// BytesPerSample returns the size of one sample of one channel. Float
// formats report 4.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatMono8, FormatStereo8:
		return 1
	case FormatMono16, FormatStereo16:
		return 2
	case FormatMonoFloat32, FormatStereoFloat32:
		return 4
	}
	return 0
}

// FloatFormat returns the float32 format for the channel count.
func FloatFormat(channels int) (Format, error) {
	switch channels {
	case 1:
		return FormatMonoFloat32, nil
	case 2:
		return FormatStereoFloat32, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
}

// PCM16Format returns the signed 16-bit format for the channel count.
func PCM16Format(channels int) (Format, error) {
	switch channels {
	case 1:
		return FormatMono16, nil
	case 2:
		return FormatStereo16, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
}
