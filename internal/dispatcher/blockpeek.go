package dispatcher

import (
	"github.com/rzbill/fdispatch/internal/position"
	"github.com/rzbill/fdispatch/internal/ringlog"
)

type frameSpan struct {
	offset int32
	length int32
}

// FrameView is a single framed buffer surfaced by a BlockPeek iterator.
// It is only valid until the next Iterator Next call or until the block
// is marked completed/failed.
type FrameView struct {
	Buffer    []byte
	Offset    int32
	Length    int32
	StreamID  int32
	Failed    bool
	IsPadding bool
}

// BlockPeek is a contiguous, non-copying read window over committed
// frames within a single partition. It is not restartable: once obtained
// it describes a fixed window until MarkCompleted or MarkFailed advances
// the owning subscription past it.
type BlockPeek struct {
	sub         *Subscription
	buf         []byte
	start       int32
	end         int32
	startPos    position.Position
	frames      []frameSpan
	allowRotate bool
	settled     bool
}

// PeekBlock returns a read window over consecutively committed frames
// starting at the subscription's cursor, whose lengths sum to at most
// maxBytes, never crossing into a second partition. allowRotate controls
// whether MarkCompleted is permitted to roll the cursor onto the next
// partition's head when the window reaches exactly to the partition end.
func (s *Subscription) PeekBlock(maxBytes int32, allowRotate bool) (*BlockPeek, int32, error) {
	partitionSize := s.dispatcher.lb.PartitionSize()
	pos := s.Position()
	buf := s.dispatcher.lb.PartitionBytes(pos)
	offset := pos.Offset()

	var frames []frameSpan
	var total int32
	cur := offset
	for cur < partitionSize {
		h := ringlog.ReadHeader(buf, cur)
		if h.Length <= 0 {
			break
		}
		if total+h.Length > maxBytes {
			break
		}
		frames = append(frames, frameSpan{offset: cur, length: h.Length})
		total += h.Length
		cur += h.Length
	}

	peek := &BlockPeek{
		sub:         s,
		buf:         buf,
		start:       offset,
		end:         cur,
		startPos:    pos,
		frames:      frames,
		allowRotate: allowRotate,
	}
	return peek, total, nil
}

// Iterator returns a one-shot iterator over the frames in the window,
// skipping padding.
func (b *BlockPeek) Iterator() func() (FrameView, bool) {
	i := 0
	return func() (FrameView, bool) {
		for i < len(b.frames) {
			span := b.frames[i]
			i++
			h := ringlog.ReadHeader(b.buf, span.offset)
			if h.IsPadding() {
				continue
			}
			return FrameView{
				Buffer:    b.buf,
				Offset:    span.offset + ringlog.HeaderLength,
				Length:    h.Length - ringlog.HeaderLength,
				StreamID:  h.StreamID,
				Failed:    h.IsFailed(),
				IsPadding: false,
			}, true
		}
		return FrameView{}, false
	}
}

// MarkCompleted advances the subscription's cursor to the end of the
// window. Calling it twice, or calling it without having consumed
// anything new, is safe: the second call is a no-op.
func (b *BlockPeek) MarkCompleted() {
	if b.settled {
		return
	}
	b.settled = true
	b.sub.setPosition(b.resolvedEnd())
}

// MarkFailed sets the FAILED flag on every non-padding frame in the
// window, then advances the cursor exactly as MarkCompleted would.
func (b *BlockPeek) MarkFailed() {
	if b.settled {
		return
	}
	for _, span := range b.frames {
		h := ringlog.ReadHeader(b.buf, span.offset)
		if !h.IsPadding() {
			ringlog.MarkFailed(b.buf, span.offset)
		}
	}
	b.settled = true
	b.sub.setPosition(b.resolvedEnd())
}

func (b *BlockPeek) resolvedEnd() position.Position {
	partitionSize := b.sub.dispatcher.lb.PartitionSize()
	if b.end == partitionSize && b.allowRotate {
		return position.Pack(b.startPos.LogicalPartition()+1, 0)
	}
	return position.Pack(b.startPos.LogicalPartition(), b.end)
}
