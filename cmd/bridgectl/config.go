package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/wirebridge/internal/channel"
	"github.com/danmuck/wirebridge/internal/config"
	"github.com/danmuck/wirebridge/internal/runtime"
)

type settings struct {
	Runtime     runtime.Config
	Output      string
	AdminListen string
	CorsOrigins []string
	LogLevel    string
}

func defaultSettings() settings {
	return settings{Runtime: runtime.DefaultConfig()}
}

// loadSettings overlays keys present in path onto defaults. A missing file
// yields defaults. The file is held to the same rules configgen -validate
// applies.
func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw config.ClientConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return settings{}, fmt.Errorf("load bridgectl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load bridgectl config: unknown key %q", undecoded[0].String())
	}
	if err := config.ValidateClientConfig(raw); err != nil {
		return settings{}, fmt.Errorf("load bridgectl config: %w", err)
	}

	if meta.IsDefined("client_id") {
		cfg.Runtime.ClientID = strings.TrimSpace(raw.ClientID)
	}
	if meta.IsDefined("queue_capacity") && raw.QueueCapacity != nil {
		cfg.Runtime.QueueCapacity = *raw.QueueCapacity
	}
	if meta.IsDefined("enqueue_policy") {
		policy, err := channel.ParsePolicy(raw.EnqueuePolicy)
		if err != nil {
			return settings{}, err
		}
		cfg.Runtime.EnqueuePolicy = policy
	}
	if meta.IsDefined("enqueue_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.EnqueueTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse enqueue_timeout: %w", err)
		}
		cfg.Runtime.EnqueueTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return settings{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Runtime.WriteTimeout = d
	}
	if meta.IsDefined("drain_on_stop") {
		cfg.Runtime.DrainOnStop = raw.DrainOnStop
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminListen = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = trimList(raw.CorsOrigins)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
