package ringlog

import (
	"testing"

	"github.com/rzbill/fdispatch/internal/byteunit"
	"github.com/rzbill/fdispatch/internal/position"
)

func newTestBuffer(t *testing.T, partitionBytes int64) *LogBuffer {
	t.Helper()
	lb, err := NewLogBuffer(byteunit.ByteValue(partitionBytes * PartitionCount))
	if err != nil {
		t.Fatalf("NewLogBuffer: %v", err)
	}
	return lb
}

func unlimited() position.Position { return position.Pack(1<<20, 0) }

func TestOfferAndReadBack(t *testing.T) {
	lb := newTestBuffer(t, 4096)
	app := NewAppender(lb, 1024, unlimited)

	pos, err := app.Offer([]byte("hello"), 7)
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if pos.Offset() == 0 {
		t.Fatalf("expected nonzero offset after a committed frame")
	}

	buf := lb.PartitionBytes(position.Pack(0, 0))
	h := ReadHeader(buf, 0)
	if h.Length <= 0 {
		t.Fatalf("frame not committed: length=%d", h.Length)
	}
	if h.StreamID != 7 {
		t.Fatalf("StreamID = %d, want 7", h.StreamID)
	}
	payload := buf[HeaderLength : HeaderLength+5]
	if string(payload) != "hello" {
		t.Fatalf("payload = %q, want hello", payload)
	}
}

func TestClaimThenAbortMarksFailed(t *testing.T) {
	lb := newTestBuffer(t, 4096)
	app := NewAppender(lb, 1024, unlimited)

	claim, _, err := app.Claim(10, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	copy(claim.Buffer()[claim.Offset():claim.Offset()+claim.Length()], "0123456789")
	claim.Abort()

	h := ReadHeader(lb.PartitionBytes(position.Pack(0, 0)), 0)
	if !h.IsFailed() {
		t.Fatalf("expected FAILED flag after Abort")
	}
	if h.Length <= 0 {
		t.Fatalf("expected aborted frame to still be committed (positive length)")
	}
}

func TestClaimRejectsInvalidLength(t *testing.T) {
	lb := newTestBuffer(t, 4096)
	app := NewAppender(lb, 64, unlimited)

	if _, _, err := app.Claim(0, 0); err != ErrInvalidLength {
		t.Fatalf("Claim(0): err = %v, want ErrInvalidLength", err)
	}
	if _, _, err := app.Claim(-1, 0); err != ErrInvalidLength {
		t.Fatalf("Claim(-1): err = %v, want ErrInvalidLength", err)
	}
	if _, _, err := app.Claim(65, 0); err != ErrInvalidLength {
		t.Fatalf("Claim(65) over max: err = %v, want ErrInvalidLength", err)
	}
}

func TestRotationPadsAndAdvances(t *testing.T) {
	const partitionSize = 64
	lb := newTestBuffer(t, partitionSize)
	app := NewAppender(lb, partitionSize-HeaderLength, unlimited)

	// Each frame is HeaderLength(16) + 40 payload, aligned to 56 bytes.
	if _, err := app.Offer(make([]byte, 40), 0); err != nil {
		t.Fatalf("offer 1: %v", err)
	}
	// Partition has 8 bytes left (64-56): too small for another 56-byte
	// frame, forcing a pad + rotation.
	pos, err := app.Offer(make([]byte, 40), 0)
	if err != nil {
		t.Fatalf("offer 2: %v", err)
	}
	if pos.LogicalPartition() != 1 {
		t.Fatalf("expected second offer to land in logical partition 1, got %d", pos.LogicalPartition())
	}

	padHeader := ReadHeader(lb.PartitionBytes(position.Pack(0, 0)), 56)
	if !padHeader.IsPadding() {
		t.Fatalf("expected a padding frame at offset 56 of partition 0")
	}
	if padHeader.Length != partitionSize-56 {
		t.Fatalf("padding length = %d, want %d", padHeader.Length, partitionSize-56)
	}
}

func TestReclaimOnlyAfterSubscribersPass(t *testing.T) {
	lb := newTestBuffer(t, 1024)

	status, _ := lb.PartitionStatusAt(position.Pack(0, 0))
	if status != StatusActive {
		t.Fatalf("partition 0 should start ACTIVE, got %s", status)
	}

	// Force partition 0 to DIRTY by rotating via the appender: the first
	// 1016-byte frame fits, the second does not and triggers the rotation.
	app := NewAppender(lb, 1024-HeaderLength, unlimited)
	for i := 0; i < 2; i++ {
		if _, err := app.Offer(make([]byte, 1000), 0); err != nil {
			t.Fatalf("offer: %v", err)
		}
	}

	status, _ = lb.PartitionStatusAt(position.Pack(0, 0))
	if status != StatusDirty {
		t.Fatalf("partition 0 should be DIRTY after rotation, got %s", status)
	}

	// A subscriber still inside partition 0 must not let it reclaim.
	lb.Reclaim(position.Pack(0, 10))
	status, _ = lb.PartitionStatusAt(position.Pack(0, 0))
	if status != StatusDirty {
		t.Fatalf("partition 0 reclaimed too early")
	}

	// Once every subscriber has moved into logical partition 1, it may.
	lb.Reclaim(position.Pack(1, 0))
	status, _ = lb.PartitionStatusAt(position.Pack(0, 0))
	if status != StatusClean {
		t.Fatalf("partition 0 should be CLEAN once subscribers moved past it, got %s", status)
	}
}

func TestInsufficientCapacityWhenNextPartitionNotReclaimed(t *testing.T) {
	const partitionSize = 64
	lb := newTestBuffer(t, partitionSize)
	app := NewAppender(lb, partitionSize-HeaderLength, unlimited)

	// Fill and rotate through all three partitions without ever
	// reclaiming any of them (no subscriber advances).
	var lastErr error
	for i := 0; i < 6; i++ {
		_, lastErr = app.Offer(make([]byte, 40), 0)
		if lastErr != nil {
			break
		}
	}
	if lastErr != ErrInsufficientCapacity {
		t.Fatalf("expected ErrInsufficientCapacity once the buffer wraps with no reclaim, got %v", lastErr)
	}
}

func TestBackPressureWithoutSubscriberAdvance(t *testing.T) {
	// With a subscriber pinned at the start and never reclaiming, the
	// appender must eventually refuse rather than wrap over unread data,
	// regardless of whether the limit check or the not-reclaimable path
	// is what actually catches it.
	lb := newTestBuffer(t, 64)
	app := NewAppender(lb, 64-HeaderLength, func() position.Position {
		return position.Add(position.Pack(0, 0), lb.Capacity(), lb.PartitionSize())
	})

	offered := 0
	var lastErr error
	for i := 0; i < 8; i++ {
		if _, err := app.Offer(make([]byte, 40), 0); err != nil {
			lastErr = err
			break
		}
		offered++
	}
	if lastErr != ErrInsufficientCapacity {
		t.Fatalf("expected ErrInsufficientCapacity once the buffer fills, got %v", lastErr)
	}
	if offered == 0 {
		t.Fatalf("expected at least one successful offer before back-pressure")
	}
}
