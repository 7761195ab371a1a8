// Package httpserver exposes a liveness probe and a Prometheus scrape
// endpoint for a running dispatcher Runtime. It carries no dispatcher
// message traffic itself.
//
// Example:
//
//	rt, _ := runtime.Open(config.Default(), prometheus.DefaultRegisterer, nil)
//	s := httpserver.New(rt)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":9090")
package httpserver
