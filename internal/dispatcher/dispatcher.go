package dispatcher

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rzbill/fdispatch/internal/position"
	"github.com/rzbill/fdispatch/internal/ringlog"
	"github.com/rzbill/fdispatch/internal/sched"
)

// Dispatcher orchestrates a LogAppender over a shared LogBuffer and the
// set of Subscriptions reading from it. It tracks the publisher limit,
// recomputing it every time a subscription advances, and owns the
// buffer's lifetime.
type Dispatcher struct {
	lb             *ringlog.LogBuffer
	appender       *ringlog.Appender
	mode           Mode
	maxFrameLength int32
	scheduler      *sched.Scheduler
	metrics        MetricsHook

	mu        sync.RWMutex
	subs      map[uuid.UUID]*Subscription
	byName    map[string]*Subscription
	subsOrder []*Subscription

	closed    atomic.Bool
	inflight  sync.WaitGroup
	closeOnce sync.Once
}

// Mode reports the dispatcher's delivery mode.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Capacity returns the buffer's total payload capacity in bytes.
func (d *Dispatcher) Capacity() int64 { return d.lb.Capacity() }

// Subscription looks up a previously opened subscription by name.
func (d *Dispatcher) Subscription(name string) (*Subscription, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.byName[name]
	return s, ok
}

func (d *Dispatcher) minPosition() position.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.subsOrder) == 0 {
		return d.lb.TailPosition()
	}
	min := d.subsOrder[0].Position()
	for _, s := range d.subsOrder[1:] {
		if p := s.Position(); p < min {
			min = p
		}
	}
	return min
}

// currentLimit is the Appender's LimitFunc: the slowest subscription's
// position plus the buffer's total capacity. With no subscriptions
// registered, it sits one full buffer ahead of the appender's own tail.
func (d *Dispatcher) currentLimit() position.Position {
	return position.Add(d.minPosition(), d.lb.Capacity(), d.lb.PartitionSize())
}

func (d *Dispatcher) onSubscriptionAdvance(s *Subscription) {
	d.lb.Reclaim(d.minPosition())
	if d.metrics != nil {
		d.metrics.OnSubscriptionAdvance(s.Name, int64(s.Position()), d.lagBytes(s))
	}
	if d.mode == Pipeline {
		d.mu.RLock()
		var next *Subscription
		if s.index+1 < len(d.subsOrder) {
			next = d.subsOrder[s.index+1]
		}
		d.mu.RUnlock()
		if next != nil {
			next.signal.Fire()
		}
	}
}

// lagBytes reports how far the appender's tail is ahead of s, in bytes.
func (d *Dispatcher) lagBytes(s *Subscription) int64 {
	tail := d.lb.TailPosition()
	from, to := s.Position(), tail
	return int64(to.LogicalPartition()-from.LogicalPartition())*int64(d.lb.PartitionSize()) +
		int64(to.Offset()-from.Offset())
}

// signalCommit wakes the subscriptions that should react to a fresh
// commit: every subscription in Independent mode, or only the first link
// of the chain in Pipeline mode (later links wake off the predecessor's
// own advance, in onSubscriptionAdvance).
func (d *Dispatcher) signalCommit() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.mode == Pipeline {
		if len(d.subsOrder) > 0 {
			d.subsOrder[0].signal.Fire()
		}
		return
	}
	for _, s := range d.subsOrder {
		s.signal.Fire()
	}
}

// Offer atomically claims, copies, and commits payload as one fragment,
// returning the position the log reached.
func (d *Dispatcher) Offer(payload []byte, streamID int32) (position.Position, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	d.inflight.Add(1)
	defer d.inflight.Done()
	if d.closed.Load() {
		return 0, ErrClosed
	}

	pos, err := d.appender.Offer(payload, streamID)
	if err != nil {
		if d.metrics != nil && errors.Is(err, ringlog.ErrInsufficientCapacity) {
			d.metrics.OnCapacityExceeded()
		}
		return 0, wrapf("offer", err)
	}
	if d.metrics != nil {
		d.metrics.OnOffered(streamID, int32(len(payload)))
		d.metrics.OnCommitted(int64(pos))
	}
	d.signalCommit()
	return pos, nil
}

// OfferCode is Offer with the legacy signed-integer return convention:
// the committed position on success, or a negative status code.
func (d *Dispatcher) OfferCode(payload []byte, streamID int32) int64 {
	pos, err := d.Offer(payload, streamID)
	if err != nil {
		return resultCode(err)
	}
	return int64(pos)
}

// ClaimHandle is a scoped handle over a reserved frame obtained from
// Dispatcher.Claim. Exactly one of Commit or Abort must be called.
type ClaimHandle struct {
	frag     *ringlog.ClaimedFragment
	d        *Dispatcher
	pos      position.Position
	streamID int32
	length   int32
}

// Buffer returns the direct byte view backing the claim.
func (c *ClaimHandle) Buffer() []byte { return c.frag.Buffer() }

// Offset returns the start of the payload window within Buffer().
func (c *ClaimHandle) Offset() int32 { return c.frag.Offset() }

// Length returns the claimed payload length.
func (c *ClaimHandle) Length() int32 { return c.frag.Length() }

// Commit publishes the claimed frame.
func (c *ClaimHandle) Commit() {
	c.frag.Commit()
	c.settle(false)
}

// Abort marks the claim FAILED and commits it, so subscribers see and
// skip it rather than stalling on an uncommitted frame.
func (c *ClaimHandle) Abort() {
	c.frag.Abort()
	c.settle(true)
}

func (c *ClaimHandle) settle(failed bool) {
	defer c.d.inflight.Done()
	if c.d.metrics != nil {
		if !failed {
			c.d.metrics.OnOffered(c.streamID, c.length)
		}
		c.d.metrics.OnCommitted(int64(c.pos))
	}
	c.d.signalCommit()
}

// Claim reserves an aligned frame of the requested payload length and
// returns a handle the caller must Commit or Abort.
func (d *Dispatcher) Claim(length int32, streamID int32) (*ClaimHandle, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	d.inflight.Add(1)
	if d.closed.Load() {
		d.inflight.Done()
		return nil, ErrClosed
	}

	frag, pos, err := d.appender.Claim(length, streamID)
	if err != nil {
		d.inflight.Done()
		if d.metrics != nil && errors.Is(err, ringlog.ErrInsufficientCapacity) {
			d.metrics.OnCapacityExceeded()
		}
		return nil, wrapf("claim", err)
	}
	return &ClaimHandle{frag: frag, d: d, pos: pos, streamID: streamID, length: length}, nil
}

// OpenSubscriptionAsync registers a new subscription. Independent-mode
// subscriptions start at the current appender tail (late joiners skip
// the existing backlog); pipeline-mode subscriptions start at the active
// partition's head, so the full in-flight partition is visible to the
// whole chain.
func (d *Dispatcher) OpenSubscriptionAsync(name string) *sched.Future[*Subscription] {
	fut := sched.NewFuture[*Subscription]()

	d.mu.Lock()
	if d.closed.Load() {
		d.mu.Unlock()
		fut.Fail(ErrClosed)
		return fut
	}
	if _, exists := d.byName[name]; exists {
		d.mu.Unlock()
		fut.Fail(ErrDuplicateSubscription)
		return fut
	}

	sub := &Subscription{ID: uuid.New(), Name: name, dispatcher: d, index: len(d.subsOrder)}
	if d.mode == Pipeline {
		sub.pos.Store(int64(d.lb.ActiveHeadPosition()))
	} else {
		sub.pos.Store(int64(d.lb.TailPosition()))
	}
	d.subsOrder = append(d.subsOrder, sub)
	d.subs[sub.ID] = sub
	d.byName[name] = sub
	d.mu.Unlock()

	fut.Complete(sub)
	return fut
}

// CloseSubscriptionAsync unregisters a subscription. In Pipeline mode
// this is rejected: removing a link would require renumbering every
// downstream predecessor reference, which this dispatcher does not
// support.
func (d *Dispatcher) CloseSubscriptionAsync(subID uuid.UUID) *sched.Future[struct{}] {
	fut := sched.NewFuture[struct{}]()

	d.mu.Lock()
	sub, ok := d.subs[subID]
	if !ok {
		d.mu.Unlock()
		fut.Fail(ErrSubscriptionNotFound)
		return fut
	}
	if d.mode == Pipeline {
		d.mu.Unlock()
		fut.Fail(errors.New("dispatcher: cannot close one subscription out of a pipeline"))
		return fut
	}
	delete(d.subs, subID)
	delete(d.byName, sub.Name)
	for i, s := range d.subsOrder {
		if s.ID == subID {
			d.subsOrder = append(d.subsOrder[:i], d.subsOrder[i+1:]...)
			break
		}
	}
	d.mu.Unlock()

	d.lb.Reclaim(d.minPosition())
	fut.Complete(struct{}{})
	return fut
}

// CloseAsync marks the dispatcher closed (further offer/claim calls fail
// immediately), waits for every already-claimed frame to commit or
// abort, stops the scheduler if one was supplied, and resolves.
func (d *Dispatcher) CloseAsync() *sched.Future[struct{}] {
	fut := sched.NewFuture[struct{}]()
	go func() {
		d.closeOnce.Do(func() {
			d.closed.Store(true)
			d.inflight.Wait()
			if d.scheduler != nil {
				d.scheduler.Stop()
			}
		})
		fut.Complete(struct{}{})
	}()
	return fut
}
