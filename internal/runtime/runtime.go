package runtime

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/fdispatch/internal/config"
	"github.com/rzbill/fdispatch/internal/dispatcher"
	"github.com/rzbill/fdispatch/internal/metrics"
	"github.com/rzbill/fdispatch/internal/sched"
	"github.com/rzbill/fdispatch/pkg/id"
	logpkg "github.com/rzbill/fdispatch/pkg/log"
)

// instanceIDs generates the sortable instance identifiers that correlate
// log lines across however many Runtimes share a process.
var instanceIDs = id.NewGenerator()

// Runtime wires config, scheduler, metrics, and a Dispatcher into a single
// running instance.
type Runtime struct {
	id         id.ID
	config     cfgpkg.Config
	scheduler  *sched.Scheduler
	collector  *metrics.Collector
	dispatcher *dispatcher.Dispatcher
	log        logpkg.Logger
}

// Open builds a Dispatcher and its supporting scheduler/metrics from cfg.
func Open(cfg cfgpkg.Config, reg prometheus.Registerer, log logpkg.Logger) (*Runtime, error) {
	if log == nil {
		log = logpkg.NewLogger()
	}
	instanceID := instanceIDs.Next()
	log = log.WithField("instance", instanceID.String())

	bufferSize, err := cfg.ParseBufferSize()
	if err != nil {
		return nil, err
	}
	mode, err := cfg.ParseMode()
	if err != nil {
		return nil, err
	}

	schedWorkers := cfg.SchedulerSize
	if schedWorkers <= 0 {
		schedWorkers = sched.DefaultWorkers
	}
	scheduler := sched.New(schedWorkers)

	var collector *metrics.Collector
	if reg != nil {
		collector = metrics.New(reg, "fdispatchd")
	}

	builder := dispatcher.NewBuilder().
		BufferSize(bufferSize).
		Mode(mode).
		Subscriptions(cfg.Subscriptions...).
		Scheduler(scheduler)
	if cfg.FrameMaxLength > 0 {
		builder = builder.FrameMaxLength(cfg.FrameMaxLength)
	}
	if collector != nil {
		builder = builder.Metrics(collector)
	}

	d, err := builder.Build()
	if err != nil {
		scheduler.Stop()
		return nil, err
	}

	log.Info("dispatcher runtime opened",
		logpkg.Str("mode", mode.String()),
		logpkg.Int64("capacityBytes", d.Capacity()))

	return &Runtime{
		id:         instanceID,
		config:     cfg,
		scheduler:  scheduler,
		collector:  collector,
		dispatcher: d,
		log:        log,
	}, nil
}

// ID returns this runtime instance's correlation identifier.
func (r *Runtime) ID() id.ID { return r.id }

// Dispatcher returns the underlying Dispatcher.
func (r *Runtime) Dispatcher() *dispatcher.Dispatcher { return r.dispatcher }

// Scheduler returns the cooperative scheduler driving subscriptions.
func (r *Runtime) Scheduler() *sched.Scheduler { return r.scheduler }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// CheckHealth reports whether the dispatcher is still accepting work.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.dispatcher == nil {
		return errors.New("runtime: dispatcher not open")
	}
	// A zero-length claim always fails validation; any response other
	// than that expected error means the dispatcher itself rejected the
	// probe (e.g. ErrClosed), which is the unhealthy case worth reporting.
	if _, err := r.dispatcher.Claim(0, 0); !errors.Is(err, dispatcher.ErrInvalidLength) {
		return err
	}
	return nil
}

// Close stops accepting new work, waits for in-flight claims to settle,
// and shuts the scheduler down.
func (r *Runtime) Close() error {
	if r.dispatcher == nil {
		return nil
	}
	_, err := r.dispatcher.CloseAsync().Await()
	r.log.Info("dispatcher runtime closed")
	return err
}
