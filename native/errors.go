// SPDX-License-Identifier: EPL-2.0

package native

import (
	"fmt"

	"github.com/ik5/audstream/audio"
)

// Error codes, numbered after the OpenAL error enum.
const (
	InvalidName      = 0xA001
	InvalidEnum      = 0xA002
	InvalidValue     = 0xA003
	InvalidOperation = 0xA004
	OutOfMemory      = 0xA005
)

var codeNames = map[int]string{
	InvalidName:      "invalid name",
	InvalidEnum:      "invalid enum",
	InvalidValue:     "invalid value",
	InvalidOperation: "invalid operation",
	OutOfMemory:      "out of memory",
}

// Error is a failed native call. It matches audio.ErrNative.
type Error struct {
	Op   string
	Code int
}

func (e *Error) Error() string {
	name, ok := codeNames[e.Code]
	if !ok {
		name = fmt.Sprintf("code 0x%X", e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", audio.ErrNative, e.Op, name)
}

func (e *Error) Is(target error) bool {
	return target == audio.ErrNative
}

// Errorf builds an *Error for op.
func Errorf(code int, op string, args ...any) *Error {
	return &Error{Op: fmt.Sprintf(op, args...), Code: code}
}
