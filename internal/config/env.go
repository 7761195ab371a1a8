package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays FDISPATCH_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FDISPATCH_BUFFER_SIZE"); v != "" {
		cfg.BufferSize = v
	}
	if v := os.Getenv("FDISPATCH_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("FDISPATCH_FRAME_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FrameMaxLength = int32(n)
		}
	}
	if v := os.Getenv("FDISPATCH_SCHEDULER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SchedulerSize = n
		}
	}
	if v := os.Getenv("FDISPATCH_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("FDISPATCH_SUBSCRIPTIONS"); v != "" {
		parts := strings.Split(v, ",")
		cfg.Subscriptions = nil
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.Subscriptions = append(cfg.Subscriptions, p)
			}
		}
	}
}
