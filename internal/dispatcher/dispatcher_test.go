package dispatcher

import (
	"errors"
	"testing"

	"github.com/rzbill/fdispatch/internal/byteunit"
)

func collectHandler(t *testing.T, out *[]string) FragmentHandler {
	t.Helper()
	return func(buffer []byte, offset, length, streamID int32, isFailed bool) FragmentResult {
		*out = append(*out, string(buffer[offset:offset+length]))
		return ConsumeResult
	}
}

func TestOfferAndPollRoundTrip(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := d.Offer([]byte("one"), 1); err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := d.Offer([]byte("two"), 1); err != nil {
		t.Fatalf("offer: %v", err)
	}

	sub, ok := d.Subscription("main")
	if !ok {
		t.Fatalf("subscription %q not found", "main")
	}

	var got []string
	n, err := sub.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("got = %v, want [one two] (producer FIFO order)", got)
	}

	// A further poll with nothing new committed delivers nothing.
	got = nil
	n, err = sub.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 || len(got) != 0 {
		t.Fatalf("expected an empty poll once drained, got n=%d got=%v", n, got)
	}
}

func TestIndependentModeDeliversToEverySubscription(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("a", "b").
		Mode(Independent).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := d.Offer([]byte("payload"), 0); err != nil {
		t.Fatalf("offer: %v", err)
	}

	for _, name := range []string{"a", "b"} {
		sub, _ := d.Subscription(name)
		var got []string
		n, err := sub.Poll(collectHandler(t, &got), 10)
		if err != nil {
			t.Fatalf("poll %s: %v", name, err)
		}
		if n != 1 || got[0] != "payload" {
			t.Fatalf("subscription %s: n=%d got=%v, want the frame delivered independently", name, n, got)
		}
	}
}

func TestPipelineModeGatesOnPredecessor(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("first", "second").
		Mode(Pipeline).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := d.Offer([]byte("msg"), 0); err != nil {
		t.Fatalf("offer: %v", err)
	}

	second, _ := d.Subscription("second")
	var got []string
	n, err := second.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("poll second: %v", err)
	}
	if n != 0 {
		t.Fatalf("second subscription must not see a frame its predecessor hasn't consumed, got n=%d", n)
	}

	first, _ := d.Subscription("first")
	got = nil
	n, err = first.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("poll first: %v", err)
	}
	if n != 1 {
		t.Fatalf("first subscription should consume the frame, got n=%d", n)
	}

	got = nil
	n, err = second.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("poll second after first: %v", err)
	}
	if n != 1 || got[0] != "msg" {
		t.Fatalf("second subscription should now see the frame, got n=%d got=%v", n, got)
	}
}

func TestCloseSubscriptionRejectedInPipelineMode(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("first", "second").
		Mode(Pipeline).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	first, _ := d.Subscription("first")
	if _, err := d.CloseSubscriptionAsync(first.ID).Await(); err == nil {
		t.Fatalf("expected CloseSubscriptionAsync to be rejected in pipeline mode")
	}
}

func TestClaimAbortMarksFailedAndIsConsumedOnce(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	claim, err := d.Claim(5, 0)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	copy(claim.Buffer()[claim.Offset():claim.Offset()+claim.Length()], "oops!")
	claim.Abort()

	sub, _ := d.Subscription("main")
	var sawFailed bool
	n, err := sub.Poll(func(buffer []byte, offset, length, streamID int32, isFailed bool) FragmentResult {
		sawFailed = isFailed
		return ConsumeResult
	}, 10)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the aborted frame to still be delivered (FAILED, not hidden), n=%d", n)
	}
	if !sawFailed {
		t.Fatalf("expected the handler to observe the FAILED flag")
	}
}

func TestPostponeResultLeavesCursorUnchanged(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := d.Offer([]byte("one"), 0); err != nil {
		t.Fatalf("offer: %v", err)
	}

	sub, _ := d.Subscription("main")
	before := sub.Position()

	n, err := sub.Poll(func(buffer []byte, offset, length, streamID int32, isFailed bool) FragmentResult {
		return PostponeResult
	}, 10)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 {
		t.Fatalf("postponed fragment must not count as consumed, n=%d", n)
	}
	if sub.Position() != before {
		t.Fatalf("postpone must leave the cursor unchanged: before=%v after=%v", before, sub.Position())
	}

	var got []string
	n, err = sub.Poll(collectHandler(t, &got), 10)
	if err != nil {
		t.Fatalf("redeliver poll: %v", err)
	}
	if n != 1 || got[0] != "one" {
		t.Fatalf("expected the same frame to be redelivered, n=%d got=%v", n, got)
	}
}

func TestPeekBlockMarkCompletedAdvancesOnce(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := d.Offer([]byte("a"), 0); err != nil {
		t.Fatalf("offer a: %v", err)
	}
	if _, err := d.Offer([]byte("bb"), 0); err != nil {
		t.Fatalf("offer bb: %v", err)
	}

	sub, _ := d.Subscription("main")
	before := sub.Position()

	block, total, err := sub.PeekBlock(4096, false)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if total == 0 {
		t.Fatalf("expected a nonzero block of committed bytes")
	}

	next := block.Iterator()
	var frames []string
	for {
		fv, ok := next()
		if !ok {
			break
		}
		frames = append(frames, string(fv.Buffer[fv.Offset:fv.Offset+fv.Length]))
	}
	if len(frames) != 2 || frames[0] != "a" || frames[1] != "bb" {
		t.Fatalf("frames = %v, want [a bb]", frames)
	}

	block.MarkCompleted()
	if sub.Position() == before {
		t.Fatalf("MarkCompleted should advance the cursor")
	}
	afterFirst := sub.Position()

	// A second MarkCompleted call is a no-op.
	block.MarkCompleted()
	if sub.Position() != afterFirst {
		t.Fatalf("second MarkCompleted must not advance further")
	}
}

func TestOfferRejectsOversizedPayload(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		FrameMaxLength(32).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := d.Offer(make([]byte, 64), 0); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("err = %v, want ErrInvalidLength", err)
	}
}

func TestOfferFailsAfterClose(t *testing.T) {
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := d.CloseAsync().Await(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := d.Offer([]byte("x"), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestDuplicateSubscriptionNameRejected(t *testing.T) {
	_, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 4096)).
		Subscriptions("main", "main").
		Build()
	if err == nil {
		t.Fatalf("expected Build to reject a duplicate subscription name")
	}
}

func TestBackPressureThenReclaimAfterPoll(t *testing.T) {
	// A small buffer so a handful of offers exhaust capacity against a
	// subscription that never polls, then polling the subscription past
	// the stuck partitions should unblock further offers.
	d, err := NewBuilder().
		BufferSize(byteunit.ByteValue(3 * 64)).
		Subscriptions("slow").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	offered := 0
	var lastErr error
	for i := 0; i < 8; i++ {
		if _, err := d.Offer(make([]byte, 40), 0); err != nil {
			lastErr = err
			break
		}
		offered++
	}
	if !errors.Is(lastErr, ErrInsufficientCapacity) {
		t.Fatalf("expected back-pressure once the slow subscriber falls behind, got %v", lastErr)
	}
	if offered == 0 {
		t.Fatalf("expected at least one successful offer before back-pressure")
	}

	// Poll stops at each partition head, so catching up on frames spread
	// across several partitions takes one Poll per partition.
	sub, _ := d.Subscription("slow")
	var got []string
	for attempt := 0; attempt < 2*offered && len(got) < offered; attempt++ {
		if _, err := sub.Poll(collectHandler(t, &got), offered-len(got)); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	if len(got) != offered {
		t.Fatalf("expected the subscriber to catch up on all %d frames, got %d", offered, len(got))
	}

	if _, err := d.Offer(make([]byte, 40), 0); err != nil {
		t.Fatalf("offer after the subscriber caught up should succeed, got %v", err)
	}
}
