package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/danmuck/wirebridge/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

// DefaultQueueCapacity applies when queue_capacity is absent. An explicit 0
// is kept and means an unbuffered queue.
const DefaultQueueCapacity = 256

// ClientConfig is the bridgectl config.toml shape.
type ClientConfig struct {
	ClientID       string   `toml:"client_id"`
	QueueCapacity  *int     `toml:"queue_capacity"`
	EnqueuePolicy  string   `toml:"enqueue_policy"`
	EnqueueTimeout string   `toml:"enqueue_timeout"`
	WriteTimeout   string   `toml:"write_timeout"`
	DrainOnStop    bool     `toml:"drain_on_stop"`
	Output         string   `toml:"output"`
	AdminListen    string   `toml:"admin_listen"`
	CorsOrigins    []string `toml:"cors_origins"`
	LogLevel       string   `toml:"log_level"`
}

// LoadClientConfig strictly decodes path: unknown keys are rejected.
func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.QueueCapacity == nil {
		capacity := DefaultQueueCapacity
		cfg.QueueCapacity = &capacity
	}
	if strings.TrimSpace(cfg.EnqueuePolicy) == "" {
		cfg.EnqueuePolicy = string(channel.PolicyBlock)
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config parse failed (%s): %s", path, strict.String())
		}
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if cfg.QueueCapacity != nil && *cfg.QueueCapacity < 0 {
		return fmt.Errorf("client config queue_capacity must be >= 0")
	}
	if _, err := channel.ParsePolicy(cfg.EnqueuePolicy); err != nil {
		return fmt.Errorf("client config enqueue_policy: %w", err)
	}
	if err := validateDuration("enqueue_timeout", cfg.EnqueueTimeout); err != nil {
		return err
	}
	if err := validateDuration("write_timeout", cfg.WriteTimeout); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.LogLevel) != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("client config log_level unknown: %q", cfg.LogLevel)
		}
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("client config cors_origins[%d] is empty", i)
		}
	}
	return nil
}

func validateDuration(key, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("client config %s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("client config %s must be >= 0", key)
	}
	return nil
}
