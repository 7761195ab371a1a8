// Package runtime wires config, scheduler, metrics, and a Dispatcher into
// a single running instance. It exposes Open/Close and a basic health
// check used by cmd/fdispatchd.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(cfg, prometheus.DefaultRegisterer, nil)
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	_, _ = rt.Dispatcher().Offer([]byte("hello"), 0)
package runtime
