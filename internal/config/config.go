// Package config loads engine settings from defaults, a YAML file and the environment.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	gv "github.com/LynnColeArt/gudavision"
)

// EnvPrefix marks environment variables that override file settings,
// e.g. GUDAVISION_DEVICE_MEMORYLIMIT.
const EnvPrefix = "GUDAVISION_"

// DeviceConfig describes the emulated device
type DeviceConfig struct {
	Name        string `koanf:"name"`
	MemoryLimit int64  `koanf:"memorylimit"` // bytes
}

// StreamConfig related to stream queues
type StreamConfig struct {
	QueueDepth int `koanf:"queuedepth"`
}

// LaunchConfig related to kernel launches
type LaunchConfig struct {
	Workers int `koanf:"workers"` // 0 means GOMAXPROCS
}

// PinnedConfig related to page-locked host memory
type PinnedConfig struct {
	Strict bool `koanf:"strict"`
}

// LogConfig related to logging
type LogConfig struct {
	Debug bool `koanf:"debug"`
}

// AppConfig defines
type AppConfig struct {
	Device DeviceConfig `koanf:"device"`
	Stream StreamConfig `koanf:"stream"`
	Launch LaunchConfig `koanf:"launch"`
	Pinned PinnedConfig `koanf:"pinned"`
	Log    LogConfig    `koanf:"log"`
}

func defaults() map[string]any {
	return map[string]any{
		"device.name":        "",
		"device.memorylimit": int64(gv.DefaultDeviceMemory),
		"stream.queuedepth":  gv.DefaultStreamQueueDepth,
		"launch.workers":     0,
		"pinned.strict":      false,
		"log.debug":          false,
	}
}

// Load reads defaults, then the YAML file at filePath if it is not
// empty, then GUDAVISION_ environment overrides.
func Load(filePath string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if filePath != "" {
		if _, err := os.Stat(filePath); err != nil {
			return nil, errors.Wrapf(err, "config file %s", filePath)
		}
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", filePath)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot honor.
func Validate(cfg *AppConfig) error {
	if cfg.Device.MemoryLimit <= 0 {
		return errors.Errorf("device.memorylimit must be positive, got %d", cfg.Device.MemoryLimit)
	}
	if cfg.Stream.QueueDepth <= 0 {
		return errors.Errorf("stream.queuedepth must be positive, got %d", cfg.Stream.QueueDepth)
	}
	if cfg.Launch.Workers < 0 {
		return errors.Errorf("launch.workers must not be negative, got %d", cfg.Launch.Workers)
	}
	return nil
}

// RuntimeOptions converts the configuration into engine options.
func (c *AppConfig) RuntimeOptions() []gv.Option {
	opts := []gv.Option{
		gv.WithMemoryLimit(c.Device.MemoryLimit),
		gv.WithQueueDepth(c.Stream.QueueDepth),
		gv.WithStrictPinning(c.Pinned.Strict),
	}
	if c.Device.Name != "" {
		opts = append(opts, gv.WithDeviceName(c.Device.Name))
	}
	if c.Launch.Workers > 0 {
		opts = append(opts, gv.WithWorkers(c.Launch.Workers))
	}
	return opts
}
