package ringlog

import "github.com/rzbill/fdispatch/internal/position"

// FrameHeader is the decoded view of a frame's header fields, used by
// subscribers. Length is acquire-loaded so a positive value is guaranteed
// to happen-after the producer's release-store on Commit.
type FrameHeader struct {
	Length   int32
	Type     int16
	Flags    uint8
	StreamID int32
}

// ReadHeader acquire-loads the header at offset within buf. A padding
// frame that reached the end of a partition may have less than
// HeaderLength bytes of room behind it; flags and stream id are left at
// their zero value rather than read out of bounds in that case (neither
// is meaningful for a padding frame).
func ReadHeader(buf []byte, offset int32) FrameHeader {
	h := FrameHeader{
		Length: frameHeaderLength(buf, offset),
		Type:   frameType(buf, offset),
	}
	if int(offset)+HeaderLength <= len(buf) {
		h.Flags = frameFlags(buf, offset)
		h.StreamID = frameStreamID(buf, offset)
	}
	return h
}

// IsFailed reports whether the FAILED flag is set.
func (h FrameHeader) IsFailed() bool { return h.Flags&FlagFailed != 0 }

// IsPadding reports whether this header describes a padding frame.
func (h FrameHeader) IsPadding() bool { return h.Type == FrameTypePadding }

// MarkFailed sets the FAILED flag on the committed frame at offset. Used by
// peek's mark-failed path and by pipeline re-delivery.
func MarkFailed(buf []byte, offset int32) { setFrameFailed(buf, offset) }

// PartitionBytes returns the byte slice for the physical partition that pos
// currently designates.
func (lb *LogBuffer) PartitionBytes(pos position.Position) []byte {
	return lb.bytesFor(pos.PhysicalIndex(PartitionCount))
}

// PartitionStatusAt returns the status of the physical partition slot that
// pos's logical partition maps to, along with whether that slot still
// actually holds pos's logical rotation (it may have already rotated past
// it and started a much later one, in pathological slow-subscriber cases
// beyond what the publisher limit is meant to prevent).
func (lb *LogBuffer) PartitionStatusAt(pos position.Position) (status PartitionStatus, currentLogical int32) {
	p := lb.partitionAt(pos.LogicalPartition())
	return p.getStatus(), p.getLogical()
}
