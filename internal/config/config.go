package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rzbill/fdispatch/internal/byteunit"
	"github.com/rzbill/fdispatch/internal/dispatcher"
)

// Config is the top-level configuration loaded from file/env to build a
// Dispatcher. JSON field names are the camelCase names a file on disk
// would carry; FromEnv overlays FDISPATCH_* variables.
type Config struct {
	BufferSize     string   `json:"bufferSize"`
	Subscriptions  []string `json:"subscriptions"`
	Mode           string   `json:"mode"`
	FrameMaxLength int32    `json:"frameMaxLength"`
	SchedulerSize  int      `json:"schedulerSize"`
	MetricsAddr    string   `json:"metricsAddr"`
}

// Default returns built-in defaults: an 8 MiB buffer, Independent mode, no
// pre-declared subscriptions, and the default scheduler worker count.
func Default() Config {
	return Config{
		BufferSize:    "8M",
		Mode:          "independent",
		SchedulerSize: 0, // 0 defers to sched.DefaultWorkers
		MetricsAddr:   ":9090",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("config: yaml not supported yet; use JSON")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// ParseMode maps the configured mode string onto a dispatcher.Mode.
func (c Config) ParseMode() (dispatcher.Mode, error) {
	switch c.Mode {
	case "", "independent":
		return dispatcher.Independent, nil
	case "pipeline":
		return dispatcher.Pipeline, nil
	default:
		return 0, errors.New("config: unknown mode " + c.Mode)
	}
}

// ParseBufferSize parses BufferSize with byteunit suffixes (K/M/G).
func (c Config) ParseBufferSize() (byteunit.ByteValue, error) {
	return byteunit.Parse(c.BufferSize)
}
