// Package config provides loading and environment overlay for the
// dispatcher runtime's configuration: buffer size, delivery mode,
// pre-declared subscriptions, and the frame size cap.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/fdispatchd.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(cfg, prometheus.DefaultRegisterer, nil)
//	defer rt.Close()
package config
