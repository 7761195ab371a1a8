package dispatcher

import (
	"errors"
	"fmt"

	"github.com/rzbill/fdispatch/internal/ringlog"
)

var (
	// ErrInsufficientCapacity is returned when the active partition (and,
	// transitively, the whole buffer) has no room for a claim under the
	// current publisher limit.
	ErrInsufficientCapacity = ringlog.ErrInsufficientCapacity

	// ErrInvalidLength is returned for a claim/offer whose length is <= 0
	// or exceeds the configured frame_max_length.
	ErrInvalidLength = ringlog.ErrInvalidLength

	// ErrClosed is returned by offer/claim once the dispatcher has begun
	// (or finished) closing.
	ErrClosed = errors.New("dispatcher: closed")

	// ErrSubscriptionNotFound is returned by CloseSubscriptionAsync for an
	// unknown subscription.
	ErrSubscriptionNotFound = errors.New("dispatcher: subscription not found")

	// ErrDuplicateSubscription is returned by Builder.Build and
	// OpenSubscriptionAsync for a name already registered.
	ErrDuplicateSubscription = errors.New("dispatcher: duplicate subscription name")
)

// resultCode maps an error returned by Offer/Claim onto a negative
// status code, for callers that prefer a numeric result over an error
// value: -1 insufficient capacity, -2 closed, -3 invalid length.
func resultCode(err error) int64 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInsufficientCapacity):
		return -1
	case errors.Is(err, ErrClosed):
		return -2
	case errors.Is(err, ErrInvalidLength):
		return -3
	default:
		return -4
	}
}

func wrapf(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("dispatcher: %s: %w", op, err)
}
