package sched

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the default worker pool size: three cooperative
// workers, enough to interleave a handful of actors without over-
// subscribing a typical host.
const DefaultWorkers = 3

// Scheduler runs a fixed pool of workers that execute actors' queued
// continuations in short, non-blocking slices. Continuations belonging to
// the same actor never run concurrently with one another; different
// actors run in parallel up to the worker count.
type Scheduler struct {
	ready  chan *actorHandle
	admit  *semaphore.Weighted
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	actors map[*actorHandle]struct{}
}

// New starts a Scheduler with the given number of workers (DefaultWorkers
// if workers <= 0).
func New(workers int) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	s := &Scheduler{
		ready:  make(chan *actorHandle, 1024),
		admit:  semaphore.NewWeighted(int64(workers) * 64),
		group:  g,
		ctx:    gctx,
		cancel: cancel,
		actors: make(map[*actorHandle]struct{}),
	}
	for i := 0; i < workers; i++ {
		g.Go(s.workerLoop)
	}
	return s
}

func (s *Scheduler) workerLoop() error {
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case h := <-s.ready:
			h.drain(s)
		}
	}
}

// Submit registers an Actor and schedules its OnStart hook.
func (s *Scheduler) Submit(a Actor) {
	h := &actorHandle{scheduler: s, actor: a}
	h.ctx = &ActorContext{h: h}
	s.mu.Lock()
	s.actors[h] = struct{}{}
	s.mu.Unlock()
	h.enqueue(func() { a.OnStart(h.ctx) })
}

// Stop cancels all workers and waits for them to exit. Continuations
// already dequeued finish running; nothing new is scheduled afterward.
// Once the workers have exited, every submitted actor's OnClose runs once.
func (s *Scheduler) Stop() {
	s.cancel()
	_ = s.group.Wait()

	s.mu.Lock()
	actors := s.actors
	s.actors = make(map[*actorHandle]struct{})
	s.mu.Unlock()
	for h := range actors {
		h.actor.OnClose()
	}
}
