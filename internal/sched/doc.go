// Package sched implements a small cooperative-scheduler surface: task
// submission, cooperative yield, completion-triggered callbacks, and a
// coalesced consume-signal binding for subscriptions. A fixed-size pool
// of workers each drain a single actor's continuation queue at a time, so
// continuations belonging to one actor never run concurrently with each
// other, while separate actors run in parallel across the pool.
//
// No operation in this package blocks a worker goroutine on I/O or on
// another actor; the admission semaphore only bounds how many
// continuations may be in flight across the pool at once.
package sched
