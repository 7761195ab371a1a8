package sched

import (
	"context"
	"sync"
)

// Actor is the lifecycle contract a scheduled task implements. OnStart
// runs as the actor's first continuation; OnClose runs once, after
// Scheduler.Stop has stopped the workers. Continuations still queued at
// that point are not run.
type Actor interface {
	OnStart(ctx *ActorContext)
	OnClose()
}

// ActorContext is the handle a running Actor uses to schedule further
// work on itself. It must not be shared across actors: continuations
// enqueued through it always run on the actor that owns it.
type ActorContext struct {
	h *actorHandle
}

// Run schedules fn to execute in this actor's own execution context,
// after any continuations already queued ahead of it.
func (c *ActorContext) Run(fn func()) { c.h.enqueue(fn) }

// Yield requests that the current continuation stop once fn returns and
// the actor be re-queued behind other runnable actors, instead of
// continuing to drain its own queue immediately. Use it to break up a
// long loop into scheduler-sized slices.
func (c *ActorContext) Yield() { c.h.requestYield() }

// RunUntilDone schedules fn repeatedly, once per scheduler turn, until fn
// calls the done function it is given. This models a re-entrant
// sub-protocol spanning several turns, such as a block consumer walking a
// batch of fragments one at a time.
func (c *ActorContext) RunUntilDone(fn func(done func())) {
	var finished bool
	markDone := func() { finished = true }
	var step func()
	step = func() {
		if finished {
			return
		}
		fn(markDone)
		if !finished {
			c.h.enqueue(step)
		}
	}
	c.h.enqueue(step)
}

// RunOnCompletion attaches cb to fut so it runs, in this actor's own
// context, once fut resolves. If fut has already resolved, cb is
// scheduled immediately.
func RunOnCompletion[T any](c *ActorContext, fut *Future[T], cb func(T, error)) {
	fut.onComplete(func(v T, err error) {
		c.h.enqueue(func() { cb(v, err) })
	})
}

// Consume binds fn as the handler for sig, coalescing repeated Fire calls
// into at most one pending invocation of fn.
func (c *ActorContext) Consume(sig *ConsumeSignal, fn func()) {
	sig.bind(c.h, fn)
}

// actorHandle owns one actor's continuation queue and running state. At
// most one worker ever drains a given handle at a time.
type actorHandle struct {
	scheduler *Scheduler
	actor     Actor
	ctx       *ActorContext

	mu      sync.Mutex
	queue   []func()
	running bool
	yield   bool
}

func (h *actorHandle) enqueue(fn func()) {
	h.mu.Lock()
	h.queue = append(h.queue, fn)
	needsSchedule := !h.running
	if needsSchedule {
		h.running = true
	}
	h.mu.Unlock()
	if needsSchedule {
		h.scheduler.ready <- h
	}
}

func (h *actorHandle) requestYield() { h.yield = true }

// drain runs queued continuations until the queue empties or a Yield was
// requested, then releases the running flag, re-scheduling itself if more
// work arrived in the interim so no wake-up is lost.
func (h *actorHandle) drain(s *Scheduler) {
	for {
		_ = s.admit.Acquire(context.Background(), 1)

		h.mu.Lock()
		if len(h.queue) == 0 {
			h.running = false
			h.mu.Unlock()
			s.admit.Release(1)
			return
		}
		fn := h.queue[0]
		h.queue = h.queue[1:]
		h.yield = false
		h.mu.Unlock()

		fn()
		s.admit.Release(1)

		if h.yield {
			h.mu.Lock()
			h.running = false
			more := len(h.queue) > 0
			if more {
				h.running = true
			}
			h.mu.Unlock()
			if more {
				s.ready <- h
			}
			return
		}
	}
}
