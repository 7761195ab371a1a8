package ringlog

import (
	"github.com/rzbill/fdispatch/internal/byteunit"
	"github.com/rzbill/fdispatch/internal/position"
)

// LimitFunc reports the current publisher limit position: the appender
// must never write a frame whose end would land beyond it. Dispatcher
// recomputes this every time a subscription advances.
type LimitFunc func() position.Position

// ClaimedFragment is a scoped handle over a reserved, not-yet-published
// frame. Exactly one of Commit, CommitFailed, or Abort must be called on
// every claim; calling a second time is a no-op (the first call to settle
// the claim wins), which makes defer-based cleanup on an error path safe
// even when the happy path already committed.
type ClaimedFragment struct {
	buf           []byte
	frameOffset   int32
	frameLength   int32
	payloadLength int32
	settled       bool
}

// Buffer returns a direct view of the partition region backing this
// claim. Callers must not retain it past Commit/Abort.
func (c *ClaimedFragment) Buffer() []byte { return c.buf }

// Offset returns the start of the payload window within Buffer().
func (c *ClaimedFragment) Offset() int32 { return c.frameOffset + HeaderLength }

// Length returns the claimed payload length.
func (c *ClaimedFragment) Length() int32 { return c.payloadLength }

// Commit publishes the claimed frame by flipping its header length
// positive with release-store semantics.
func (c *ClaimedFragment) Commit() {
	if c.settled {
		return
	}
	storeFrameHeaderLength(c.buf, c.frameOffset, c.frameLength)
	c.settled = true
}

// CommitFailed marks the frame FAILED and then commits it, so subscribers
// can observe and skip it.
func (c *ClaimedFragment) CommitFailed() {
	if c.settled {
		return
	}
	setFrameFailed(c.buf, c.frameOffset)
	storeFrameHeaderLength(c.buf, c.frameOffset, c.frameLength)
	c.settled = true
}

// Abort is an alias for CommitFailed: the external API names it "abort"
// for producers bailing out on error, while internally it is exactly a
// failed commit.
func (c *ClaimedFragment) Abort() { c.CommitFailed() }

// Appender claims space in the active partition, writes frame headers, and
// commits or aborts fragments, rotating partitions as they fill.
type Appender struct {
	lb             *LogBuffer
	maxFrameLength int32
	limit          LimitFunc
	onPadding      func(bytes int32)
}

// NewAppender creates an Appender over lb. maxFrameLength caps the payload
// length accepted by Claim/Offer (the frame_max_length setting); limit
// reports the current publisher limit.
func NewAppender(lb *LogBuffer, maxFrameLength int32, limit LimitFunc) *Appender {
	return &Appender{lb: lb, maxFrameLength: maxFrameLength, limit: limit}
}

// OnPadding installs a callback invoked with the size of every padding
// frame the appender writes during partition rotation.
func (a *Appender) OnPadding(fn func(bytes int32)) { a.onPadding = fn }

// Claim reserves an aligned frame of the requested payload length and
// returns a handle the caller must Commit or Abort. The returned position
// is the position the log will reach once this frame is committed.
func (a *Appender) Claim(length int32, streamID int32) (*ClaimedFragment, position.Position, error) {
	if length <= 0 || length > a.maxFrameLength {
		return nil, 0, ErrInvalidLength
	}
	frameLength := byteunit.Align(HeaderLength + length)
	if frameLength > a.lb.partitionSize {
		return nil, 0, ErrInvalidLength
	}

	for {
		p, logical := a.lb.activePartition()
		tail := p.getTail()
		newTail := tail + frameLength

		if newTail <= a.lb.partitionSize {
			endPos := position.Pack(logical, newTail)
			if a.limit != nil && endPos > a.limit() {
				return nil, 0, ErrInsufficientCapacity
			}
			if !p.tail.CompareAndSwap(tail, newTail) {
				continue
			}
			buf := a.lb.bytesFor(p.index)
			writeHeader(buf, tail, frameLength, FrameTypeMessage, streamID)
			return &ClaimedFragment{
				buf:           buf,
				frameOffset:   tail,
				frameLength:   frameLength,
				payloadLength: length,
			}, position.Pack(logical, newTail), nil
		}

		if tail >= a.lb.partitionSize {
			// Someone already padded this partition; help complete the
			// rotation and retry the claim on whatever is active now.
			if err := a.rotate(p, logical); err != nil {
				return nil, 0, ErrInsufficientCapacity
			}
			continue
		}

		padLength := a.lb.partitionSize - tail
		if !p.tail.CompareAndSwap(tail, a.lb.partitionSize) {
			continue
		}
		buf := a.lb.bytesFor(p.index)
		writePaddingHeader(buf, tail, padLength)
		if a.onPadding != nil {
			a.onPadding(padLength)
		}

		if err := a.rotate(p, logical); err != nil {
			return nil, 0, ErrInsufficientCapacity
		}
	}
}

// rotate marks the old partition DIRTY and, if the next partition in
// rotation order is CLEAN, activates it and advances the buffer's active
// logical index. It returns errPartitionNotReclaimable if the next
// partition has not yet been fully consumed by every subscription.
func (a *Appender) rotate(old *partition, oldLogical int32) error {
	old.casStatus(StatusActive, StatusDirty)

	nextLogical := oldLogical + 1
	next := a.lb.partitionAt(nextLogical)
	if !next.casStatus(StatusClean, StatusActive) {
		return errPartitionNotReclaimable
	}
	next.activate(nextLogical)
	a.lb.activeLogical.Store(nextLogical)
	return nil
}

// Offer atomically claims, copies, and commits payload as a single frame,
// returning the resulting log position.
func (a *Appender) Offer(payload []byte, streamID int32) (position.Position, error) {
	claim, pos, err := a.Claim(int32(len(payload)), streamID)
	if err != nil {
		return 0, err
	}
	copy(claim.Buffer()[claim.Offset():claim.Offset()+claim.Length()], payload)
	claim.Commit()
	return pos, nil
}
