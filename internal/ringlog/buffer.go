package ringlog

import (
	"fmt"
	"sync/atomic"

	"github.com/rzbill/fdispatch/internal/byteunit"
	"github.com/rzbill/fdispatch/internal/position"
)

// PartitionCount is the fixed number of partitions a LogBuffer rotates
// through: one active, one draining (DIRTY), one
// available for the next rotation (CLEAN).
const PartitionCount = 3

// MinPartitionSize is the smallest partition size accepted by NewLogBuffer.
const MinPartitionSize = 64

// LogBuffer is the fixed-size byte region partitioned into PartitionCount
// equal Partitions. It holds only framed fragment bytes; all bookkeeping
// lives in the out-of-band partition metadata.
type LogBuffer struct {
	buf           []byte
	partitionSize int32
	partitions    [PartitionCount]*partition
	activeLogical atomic.Int32
}

// NewLogBuffer allocates a LogBuffer sized to hold at least requestedBytes
// of payload capacity, rounding each partition up to a power-of-two
// multiple of the frame alignment.
func NewLogBuffer(requestedBytes byteunit.ByteValue) (*LogBuffer, error) {
	if requestedBytes.Bytes() < int64(PartitionCount)*MinPartitionSize {
		return nil, fmt.Errorf("ringlog: buffer size %s below minimum %s",
			requestedBytes, byteunit.ByteValue(int64(PartitionCount)*MinPartitionSize))
	}

	perPartition := (requestedBytes.Bytes() + PartitionCount - 1) / PartitionCount
	partitionSize := byteunit.NextPowerOfTwo(perPartition)
	if partitionSize > (1 << 31) {
		return nil, fmt.Errorf("ringlog: requested partition size %d overflows int32", partitionSize)
	}

	lb := &LogBuffer{
		buf:           make([]byte, int64(PartitionCount)*partitionSize),
		partitionSize: int32(partitionSize),
	}
	for i := int32(0); i < PartitionCount; i++ {
		lb.partitions[i] = newPartition(i)
	}
	// Partition 0 starts ACTIVE at logical rotation 0; the others start CLEAN.
	lb.partitions[0].logical.Store(0)
	lb.partitions[0].setStatus(StatusActive)
	lb.activeLogical.Store(0)
	return lb, nil
}

// PartitionSize returns the size, in bytes, of a single partition.
func (lb *LogBuffer) PartitionSize() int32 { return lb.partitionSize }

// Capacity returns the total payload capacity of the buffer (all
// partitions combined) — the buffer's total write capacity.
func (lb *LogBuffer) Capacity() int64 { return int64(lb.partitionSize) * PartitionCount }

// bytesFor returns the byte slice backing the physical partition at index.
func (lb *LogBuffer) bytesFor(physicalIndex int32) []byte {
	start := int64(physicalIndex) * int64(lb.partitionSize)
	return lb.buf[start : start+int64(lb.partitionSize)]
}

// activePartition returns the partition currently accepting claims along
// with its logical rotation index.
func (lb *LogBuffer) activePartition() (*partition, int32) {
	logical := lb.activeLogical.Load()
	return lb.partitions[logical%PartitionCount], logical
}

// partitionAt returns the partition slot for an arbitrary
// logical rotation index, which may or may not currently be the one
// occupying that slot (callers must check .logical before trusting the
// contents).
func (lb *LogBuffer) partitionAt(logical int32) *partition {
	return lb.partitions[logical%PartitionCount]
}

// HeadPosition returns the position at offset 0 of the given logical
// partition.
func HeadPosition(logical int32) position.Position { return position.Pack(logical, 0) }

// TailPosition returns the appender's current write position (end of the
// last claimed-or-committed region in the active partition). Late-joining
// subscriptions in independent mode start here.
func (lb *LogBuffer) TailPosition() position.Position {
	p, logical := lb.activePartition()
	return position.Pack(logical, p.getTail())
}

// ActiveHeadPosition returns the start of the currently active partition.
// Pipeline-mode subscriptions start here so they observe the full backlog
// of the partition currently being written.
func (lb *LogBuffer) ActiveHeadPosition() position.Position {
	_, logical := lb.activePartition()
	return position.Pack(logical, 0)
}

// Reclaim scans DIRTY partitions and transitions any that lie strictly
// behind minSubscriberPosition's logical partition back to CLEAN, making
// them available for the appender's next rotation. It is called whenever
// a subscription advances.
func (lb *LogBuffer) Reclaim(minSubscriberPosition position.Position) {
	minLogical := minSubscriberPosition.LogicalPartition()
	for _, p := range lb.partitions {
		if p.getStatus() == StatusDirty && minLogical > p.getLogical() {
			p.casStatus(StatusDirty, StatusClean)
		}
	}
}
