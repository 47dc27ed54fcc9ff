package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/renderd/internal/worker"
)

type fileConfig struct {
	Rank               int      `toml:"rank"`
	Size               int      `toml:"size"`
	Transport          string   `toml:"transport"`
	MasterAddress      string   `toml:"master_address"`
	RedisURL           string   `toml:"redis_url"`
	Session            string   `toml:"session"`
	RegionScratchBytes int      `toml:"region_scratch_bytes"`
	MaxStringBytes     uint32   `toml:"max_string_bytes"`
	StatusAddr         string   `toml:"status_addr"`
	CORSOrigins        []string `toml:"cors_origins"`
	Modules            []string `toml:"modules"`
	ConnectMaxAttempts int      `toml:"connect_max_attempts"`
	BackoffInitial     string   `toml:"backoff_initial"`
	BackoffMax         string   `toml:"backoff_max"`
}

const (
	envRank      = "RENDERD_RANK"
	envSize      = "RENDERD_SIZE"
	envMaster    = "RENDERD_MASTER_ADDRESS"
	envRedisURL  = "RENDERD_REDIS_URL"
	envSession   = "RENDERD_SESSION"
	envTransport = "RENDERD_TRANSPORT"
)

// loadServiceConfig starts from defaults and applies only the keys path
// defines. An empty path yields the defaults.
func loadServiceConfig(path string) (worker.ServiceConfig, error) {
	cfg := worker.DefaultServiceConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return worker.ServiceConfig{}, fmt.Errorf("load worker config: %w", err)
	}

	if meta.IsDefined("rank") {
		cfg.Rank = raw.Rank
	}

	if meta.IsDefined("size") {
		cfg.Size = raw.Size
	}

	if meta.IsDefined("transport") {
		cfg.Transport = worker.TransportKind(strings.ToLower(strings.TrimSpace(raw.Transport)))
	}

	if meta.IsDefined("master_address") {
		cfg.MasterAddress = strings.TrimSpace(raw.MasterAddress)
	}

	if meta.IsDefined("redis_url") {
		cfg.RedisURL = strings.TrimSpace(raw.RedisURL)
	}

	if meta.IsDefined("session") {
		cfg.Session = strings.TrimSpace(raw.Session)
	}

	if meta.IsDefined("region_scratch_bytes") {
		if raw.RegionScratchBytes < 0 {
			return worker.ServiceConfig{}, fmt.Errorf("region_scratch_bytes must not be negative: %d", raw.RegionScratchBytes)
		}
		cfg.RegionScratchBytes = raw.RegionScratchBytes
	}

	if meta.IsDefined("max_string_bytes") {
		cfg.MaxStringBytes = raw.MaxStringBytes
	}

	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}

	if meta.IsDefined("modules") {
		cfg.Modules = normalizeList(raw.Modules)
	}

	if meta.IsDefined("connect_max_attempts") {
		cfg.ConnectMaxAttempts = raw.ConnectMaxAttempts
	}

	if meta.IsDefined("backoff_initial") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffInitial))
		if err != nil {
			return worker.ServiceConfig{}, fmt.Errorf("parse backoff_initial: %w", err)
		}
		cfg.Backoff.InitialDelay = d
	}

	if meta.IsDefined("backoff_max") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BackoffMax))
		if err != nil {
			return worker.ServiceConfig{}, fmt.Errorf("parse backoff_max: %w", err)
		}
		cfg.Backoff.MaxDelay = d
	}

	return cfg, nil
}

// applyEnvOverrides lets a launcher set per-process identity without a
// config file per rank.
func applyEnvOverrides(cfg *worker.ServiceConfig) error {
	if v, ok := os.LookupEnv(envRank); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", envRank, err)
		}
		cfg.Rank = n
	}
	if v, ok := os.LookupEnv(envSize); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", envSize, err)
		}
		cfg.Size = n
	}
	if v, ok := os.LookupEnv(envTransport); ok {
		cfg.Transport = worker.TransportKind(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := os.LookupEnv(envMaster); ok {
		cfg.MasterAddress = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envRedisURL); ok {
		cfg.RedisURL = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(envSession); ok {
		cfg.Session = strings.TrimSpace(v)
	}
	return nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
