package dispatcher

// FragmentResult is the verdict a FragmentHandler returns for one
// delivered fragment.
type FragmentResult int

const (
	// ConsumeResult advances the subscription's cursor past the fragment.
	ConsumeResult FragmentResult = iota
	// PostponeResult stops polling immediately, leaving the cursor
	// unchanged so the same fragment is redelivered on the next poll.
	PostponeResult
	// FailedResult advances past the fragment but, in pipeline mode,
	// marks it FAILED so the next subscription in the chain can see it
	// was rejected upstream.
	FailedResult
)

func (r FragmentResult) String() string {
	switch r {
	case ConsumeResult:
		return "CONSUME"
	case PostponeResult:
		return "POSTPONE"
	case FailedResult:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// FragmentHandler receives one delivered fragment. buffer is only valid
// for the duration of the call; implementations must not retain it.
type FragmentHandler func(buffer []byte, offset, length, streamID int32, isFailed bool) FragmentResult

// MetricsHook receives dispatcher lifecycle events. Implementations must
// be safe for concurrent use; a nil hook is valid and disables reporting.
type MetricsHook interface {
	OnOffered(streamID int32, length int32)
	OnCommitted(position int64)
	OnPadding(bytes int32)
	OnCapacityExceeded()
	OnSubscriptionAdvance(name string, position int64, lagBytes int64)
}
