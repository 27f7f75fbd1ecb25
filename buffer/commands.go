// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/ik5/audstream/bus"
	"github.com/ik5/audstream/native"
)

// Action is a playback command verb.
type Action int

const (
	Play Action = iota
	Pause
	Reset
	EnableLoop
	DisableLoop
)

func (a Action) String() string {
	switch a {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case Reset:
		return "reset"
	case EnableLoop:
		return "enable-loop"
	case DisableLoop:
		return "disable-loop"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Command targets the engine that owns Source. Engines drop commands for
// any other source, including their own from before a device change.
type Command struct {
	Source native.SourceID
	Action Action
}

// SeekCommand moves the engine owning Source to Seconds. Senders clamp
// Seconds to the stream length.
type SeekCommand struct {
	Source  native.SourceID
	Seconds float64
}

// Channels connects one playback handle to its buffer engine.
type Channels struct {
	Commands *bus.Topic[Command]
	Seeks    *bus.Topic[SeekCommand]
	Looping  *bus.Query[native.SourceID, bool]
}

func NewChannels() *Channels {
	return &Channels{
		Commands: bus.NewTopic[Command](),
		Seeks:    bus.NewTopic[SeekCommand](),
		Looping:  bus.NewQuery[native.SourceID, bool](),
	}
}

// handler is what an engine does with the commands addressed to it.
type handler interface {
	command(Action)
	seek(seconds float64)
	loopState() bool
}

// listen subscribes h to ch, delivering only messages for the source held
// in current.
func listen(ch *Channels, current *atomic.Uint32, h handler) []*bus.Subscription {
	mine := func(id native.SourceID) bool {
		return id != 0 && uint32(id) == current.Load()
	}
	return []*bus.Subscription{
		ch.Commands.Subscribe(func(c Command) {
			if mine(c.Source) {
				h.command(c.Action)
			}
		}),
		ch.Seeks.Subscribe(func(c SeekCommand) {
			if mine(c.Source) {
				h.seek(c.Seconds)
			}
		}),
		ch.Looping.Respond(func(id native.SourceID) (bool, bool) {
			if !mine(id) {
				return false, false
			}
			return h.loopState(), true
		}),
	}
}

func unsubscribe(subs []*bus.Subscription) {
	for _, s := range subs {
		s.Unsubscribe()
	}
}
