package ringlog

import (
	"sync/atomic"
)

// PartitionStatus is the lifecycle state of one physical partition slot.
type PartitionStatus int32

const (
	// StatusClean means the partition holds no unreclaimed data and may
	// become the active partition.
	StatusClean PartitionStatus = iota
	// StatusActive means the partition is currently being written to.
	StatusActive
	// StatusDirty means the partition was fully written (possibly padded)
	// and is waiting for every subscription to move past its end before it
	// can be reclaimed to StatusClean.
	StatusDirty
)

func (s PartitionStatus) String() string {
	switch s {
	case StatusClean:
		return "CLEAN"
	case StatusActive:
		return "ACTIVE"
	case StatusDirty:
		return "DIRTY"
	default:
		return "UNKNOWN"
	}
}

// partition is the out-of-band metadata for one physical slot of the
// LogBuffer. The byte region itself is pure payload; status and the tail
// counter live here so the data region never needs bookkeeping bytes
// beyond the per-frame header.
type partition struct {
	status  atomic.Int32 // PartitionStatus
	tail    atomic.Int32 // next writable offset within the partition
	index   int32        // physical slot index [0, partitionCount)
	logical atomic.Int32 // logical (ever-increasing) rotation index currently occupying this slot
}

func newPartition(index int32) *partition {
	p := &partition{index: index}
	p.status.Store(int32(StatusClean))
	return p
}

func (p *partition) getStatus() PartitionStatus { return PartitionStatus(p.status.Load()) }

func (p *partition) setStatus(s PartitionStatus) { p.status.Store(int32(s)) }

// casStatus transitions the partition from old to new, returning whether
// the transition succeeded.
func (p *partition) casStatus(old, new PartitionStatus) bool {
	return p.status.CompareAndSwap(int32(old), int32(new))
}

func (p *partition) getTail() int32 { return p.tail.Load() }

func (p *partition) getLogical() int32 { return p.logical.Load() }

// activate transitions a CLEAN partition to ACTIVE for the given logical
// rotation index, resetting its tail to 0. The caller must have already
// confirmed (via casStatus or equivalent) exclusive right to perform the
// transition.
func (p *partition) activate(logical int32) {
	p.tail.Store(0)
	p.logical.Store(logical)
}
