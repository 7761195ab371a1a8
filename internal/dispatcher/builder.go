package dispatcher

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rzbill/fdispatch/internal/byteunit"
	"github.com/rzbill/fdispatch/internal/ringlog"
	"github.com/rzbill/fdispatch/internal/sched"
)

// unsetFrameMaxLength marks that Builder.FrameMaxLength was never called;
// Build then derives the cap from the actual partition size.
const unsetFrameMaxLength = 0

// Builder assembles a Dispatcher from a chained, validated configuration,
// mirroring the fixed construction surface of a LogBuffer: buffer size,
// subscription names (which also fix pipeline order), mode, and frame
// size cap.
type Builder struct {
	bufferSize     byteunit.ByteValue
	subscriptions  []string
	mode           Mode
	frameMaxLength int32
	scheduler      *sched.Scheduler
	metrics        MetricsHook
}

// NewBuilder returns a Builder with Independent mode and no
// subscriptions pre-declared.
func NewBuilder() *Builder {
	return &Builder{mode: Independent, frameMaxLength: unsetFrameMaxLength}
}

// BufferSize sets the total log buffer size (must be at least
// 3*MinPartitionSize once divided across partitions).
func (b *Builder) BufferSize(v byteunit.ByteValue) *Builder {
	b.bufferSize = v
	return b
}

// Subscriptions pre-declares subscription names, opened synchronously
// during Build in the given order. In Pipeline mode this order is the
// delivery chain.
func (b *Builder) Subscriptions(names ...string) *Builder {
	b.subscriptions = names
	return b
}

// Mode sets the delivery mode.
func (b *Builder) Mode(m Mode) *Builder {
	b.mode = m
	return b
}

// FrameMaxLength caps the payload length accepted by Offer/Claim. Zero
// (the default) defers to the partition size computed at Build time.
func (b *Builder) FrameMaxLength(n int32) *Builder {
	b.frameMaxLength = n
	return b
}

// Scheduler attaches a cooperative scheduler subscriptions can Consume
// through. Optional: a Dispatcher with no scheduler still works, but its
// Subscriptions can only be driven by direct Poll/PeekBlock calls.
func (b *Builder) Scheduler(s *sched.Scheduler) *Builder {
	b.scheduler = s
	return b
}

// Metrics attaches an optional MetricsHook.
func (b *Builder) Metrics(m MetricsHook) *Builder {
	b.metrics = m
	return b
}

// Build validates the configuration and returns a ready Dispatcher with
// every pre-declared subscription already open.
func (b *Builder) Build() (*Dispatcher, error) {
	seen := make(map[string]struct{}, len(b.subscriptions))
	for _, name := range b.subscriptions {
		if name == "" {
			return nil, fmt.Errorf("dispatcher: subscription name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSubscription, name)
		}
		seen[name] = struct{}{}
	}

	lb, err := ringlog.NewLogBuffer(b.bufferSize)
	if err != nil {
		return nil, err
	}

	maxFrameLength := b.frameMaxLength
	if maxFrameLength == unsetFrameMaxLength {
		maxFrameLength = lb.PartitionSize() - ringlog.HeaderLength
		maxFrameLength -= maxFrameLength % byteunit.FrameAlignment
	}

	d := &Dispatcher{
		lb:             lb,
		mode:           b.mode,
		maxFrameLength: maxFrameLength,
		scheduler:      b.scheduler,
		metrics:        b.metrics,
		subs:           make(map[uuid.UUID]*Subscription),
		byName:         make(map[string]*Subscription),
	}
	d.appender = ringlog.NewAppender(lb, maxFrameLength, d.currentLimit)
	if d.metrics != nil {
		d.appender.OnPadding(func(bytes int32) { d.metrics.OnPadding(bytes) })
	}

	for _, name := range b.subscriptions {
		fut := d.OpenSubscriptionAsync(name)
		if _, err := fut.Await(); err != nil {
			return nil, err
		}
	}
	return d, nil
}
