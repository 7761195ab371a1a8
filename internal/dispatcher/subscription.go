package dispatcher

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rzbill/fdispatch/internal/position"
	"github.com/rzbill/fdispatch/internal/ringlog"
	"github.com/rzbill/fdispatch/internal/sched"
)

// Subscription is a single consumer's independent cursor over a
// Dispatcher's log. It is safe for one goroutine (or one scheduler actor)
// to drive at a time; its Position may be read concurrently by the
// dispatcher's publisher-limit and reclaim bookkeeping.
type Subscription struct {
	ID         uuid.UUID
	Name       string
	index      int
	dispatcher *Dispatcher
	pos        atomic.Int64
	signal     sched.ConsumeSignal
}

// Position returns the subscription's current cursor.
func (s *Subscription) Position() position.Position {
	return position.Position(s.pos.Load())
}

func (s *Subscription) setPosition(p position.Position) {
	s.pos.Store(int64(p))
	s.dispatcher.onSubscriptionAdvance(s)
}

// Consume binds fn to run, under ctx's actor, whenever this subscription
// is signalled that new data may be available. Signals are coalesced: a
// burst of commits produces at most one pending invocation of fn.
func (s *Subscription) Consume(ctx *sched.ActorContext, fn func()) {
	ctx.Consume(&s.signal, fn)
}

// Poll delivers up to maxFrames committed fragments to handler, advancing
// the cursor past each one the handler consumes. It returns the number of
// fragments delivered (padding frames skipped over do not count).
func (s *Subscription) Poll(handler FragmentHandler, maxFrames int) (int, error) {
	if handler == nil {
		return 0, errors.New("dispatcher: nil handler")
	}
	partitionSize := s.dispatcher.lb.PartitionSize()
	pos := s.Position()
	start := pos
	consumed := 0

	for consumed < maxFrames {
		if s.dispatcher.mode == Pipeline && s.index > 0 {
			predecessor := s.dispatcher.subsOrder[s.index-1]
			if pos >= predecessor.Position() {
				break
			}
		}

		buf := s.dispatcher.lb.PartitionBytes(pos)
		offset := pos.Offset()
		h := ringlog.ReadHeader(buf, offset)
		if h.Length <= 0 {
			break
		}

		if h.IsPadding() {
			pos = position.Add(pos, int64(h.Length), partitionSize)
			if pos.Offset() == 0 {
				break
			}
			continue
		}

		payloadOffset := offset + ringlog.HeaderLength
		payloadLength := h.Length - ringlog.HeaderLength
		result := handler(buf, payloadOffset, payloadLength, h.StreamID, h.IsFailed())

		switch result {
		case ConsumeResult:
			pos = position.Add(pos, int64(h.Length), partitionSize)
			consumed++
		case FailedResult:
			if s.dispatcher.mode == Pipeline {
				ringlog.MarkFailed(buf, offset)
			}
			pos = position.Add(pos, int64(h.Length), partitionSize)
			consumed++
		case PostponeResult:
			goto settle
		}

		if pos.Offset() == 0 {
			break
		}
	}

settle:
	if pos != start {
		s.setPosition(pos)
	}
	return consumed, nil
}
