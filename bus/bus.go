// SPDX-License-Identifier: EPL-2.0

package bus

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subscription detaches a handler from its topic.
type Subscription struct {
	detach func()
	once   sync.Once
	active atomic.Bool
}

func newSubscription() *Subscription {
	s := &Subscription{}
	s.active.Store(true)
	return s
}

// Unsubscribe stops delivery immediately, including for a publish that is
// in progress. It is safe to call more than once and from inside the
// handler itself.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.active.Store(false)
		if s.detach != nil {
			s.detach()
		}
	})
}

// Active reports whether the subscription still receives messages.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

type handler[T any] struct {
	sub *Subscription
	fn  func(T)
}

// Topic delivers every published message to each subscriber synchronously,
// in subscription order, on the publishing goroutine.
type Topic[T any] struct {
	mtx      sync.Mutex
	handlers []*handler[T]
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	h := &handler[T]{sub: newSubscription(), fn: fn}
	h.sub.detach = func() { t.remove(h) }

	t.mtx.Lock()
	t.handlers = append(t.handlers, h)
	t.mtx.Unlock()
	return h.sub
}

func (t *Topic[T]) remove(h *handler[T]) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.handlers = slices.DeleteFunc(t.handlers, func(x *handler[T]) bool { return x == h })
}

// Publish runs the handlers subscribed at the time of the call. Handlers
// may subscribe or unsubscribe freely while it runs.
func (t *Topic[T]) Publish(msg T) {
	t.mtx.Lock()
	snapshot := slices.Clone(t.handlers)
	t.mtx.Unlock()

	for _, h := range snapshot {
		if h.sub.Active() {
			h.fn(msg)
		}
	}
}

// Len is the number of active subscribers.
func (t *Topic[T]) Len() int {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return len(t.handlers)
}

// Query is a request/response topic. Responders claim a request by
// returning true; the first claim wins.
type Query[Req, Resp any] struct {
	topic *Topic[*pending[Req, Resp]]
}

type pending[Req, Resp any] struct {
	req     Req
	resp    Resp
	claimed bool
}

func NewQuery[Req, Resp any]() *Query[Req, Resp] {
	return &Query[Req, Resp]{topic: NewTopic[*pending[Req, Resp]]()}
}

func (q *Query[Req, Resp]) Respond(fn func(Req) (Resp, bool)) *Subscription {
	return q.topic.Subscribe(func(p *pending[Req, Resp]) {
		if p.claimed {
			return
		}
		if resp, ok := fn(p.req); ok {
			p.resp = resp
			p.claimed = true
		}
	})
}

// Ask returns the first claimed response, or false when nobody answered.
func (q *Query[Req, Resp]) Ask(req Req) (Resp, bool) {
	p := &pending[Req, Resp]{req: req}
	q.topic.Publish(p)
	return p.resp, p.claimed
}

func (q *Query[Req, Resp]) Len() int { return q.topic.Len() }
