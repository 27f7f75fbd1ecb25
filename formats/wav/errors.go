// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"

	"github.com/ik5/audstream/audio"
)

var (
	ErrInvalidSampleRate = fmt.Errorf("%w: wav sample rate must be positive", audio.ErrConfiguration)
	ErrInvalidChannels   = fmt.Errorf("%w: wav samples do not divide into channels", audio.ErrConfiguration)
)
