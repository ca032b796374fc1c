// Package config loads the event ingest gateway's configuration from
// environment variables (the source of truth per the operations contract),
// with an optional TOML file overlay for defaults operators want checked
// into a deployment repo. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// OpsMode is the top-level mode (C13 Mode Machine).
type OpsMode string

const (
	ModeEcho  OpsMode = "ECHO"
	ModeStore OpsMode = "STORE"
	ModeFull  OpsMode = "FULL"
)

// ReplayMode selects which spool stages the replay worker resubmits.
type ReplayMode string

const (
	ReplayFallbackOnly ReplayMode = "FALLBACK_ONLY"
	ReplayAll          ReplayMode = "ALL"
)

// Config holds every tunable named in spec.md §6, grouped by subsystem.
type Config struct {
	Port int

	OpsMode      OpsMode
	ExternalSync bool

	JSONLimitBytes int64

	DedupeWindowMs int64
	StoreLimit     int

	QueueLimit         int
	WorkerIntervalMs   int64
	WorkerBatchSize    int
	WorkerMaxRetry     int
	WorkerBackoffBase  int64

	SheetID                     string
	EventsSheetName             string
	GoogleServiceAccountJSONB64 string
	GoogleServiceAccountJSON    string

	GASWebappURL     string
	ITPlaylabSecret  string
	GASTimeoutMs     int64

	JSONLFallback    bool
	JSONLAlways      bool
	JSONLDir         string
	JSONLFile        string
	JSONLMaxBytes    int64
	JSONLTailMaxBytes int64

	ReplayEnabled          bool
	ReplayIntervalMs       int64
	ReplayBatchSize        int
	ReplayMaxBytesPerTick  int64
	ReplayMode             ReplayMode
	ReplayStateFile        string

	LogLevel string
}

// Default returns the configuration with every spec.md §6 default applied.
func Default() *Config {
	return &Config{
		Port: 3000,

		OpsMode:      ModeFull,
		ExternalSync: false,

		JSONLimitBytes: 2 << 20, // 2mb

		DedupeWindowMs: 2000,
		StoreLimit:     200,

		QueueLimit:        500,
		WorkerIntervalMs:  1500,
		WorkerBatchSize:   5,
		WorkerMaxRetry:    5,
		WorkerBackoffBase: 2000,

		EventsSheetName: "events",
		GASTimeoutMs:    2500,

		JSONLFallback:     false,
		JSONLAlways:       false,
		JSONLDir:          "/var/data",
		JSONLFile:         "ingest_fallback.jsonl",
		JSONLMaxBytes:     104857600,
		JSONLTailMaxBytes: 2097152,

		ReplayEnabled:         false,
		ReplayIntervalMs:      3000,
		ReplayBatchSize:       10,
		ReplayMaxBytesPerTick: 1048576,
		ReplayMode:            ReplayFallbackOnly,
		ReplayStateFile:       "replay_state.json",

		LogLevel: "info",
	}
}

// Load builds a Config starting from defaults, optionally overlaying a TOML
// file (tomlPath, may be empty/missing — silently skipped), then applying
// environment variable overrides, which always take precedence.
func Load(tomlPath string) (*Config, error) {
	cfg := Default()

	if tomlPath != "" {
		if data, err := os.ReadFile(tomlPath); err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", tomlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", tomlPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	envInt(&c.Port, "PORT")
	envMode(&c.OpsMode, "OPS_MODE")
	envToggle(&c.ExternalSync, "EXTERNAL_SYNC")
	envBytesSize(&c.JSONLimitBytes, "JSON_LIMIT")

	envInt64(&c.DedupeWindowMs, "DEDUPE_WINDOW_MS")
	envInt(&c.StoreLimit, "STORE_LIMIT")

	envInt(&c.QueueLimit, "QUEUE_LIMIT")
	envInt64(&c.WorkerIntervalMs, "WORKER_INTERVAL_MS")
	envInt(&c.WorkerBatchSize, "WORKER_BATCH_SIZE")
	envInt(&c.WorkerMaxRetry, "WORKER_MAX_RETRY")
	envInt64(&c.WorkerBackoffBase, "WORKER_BACKOFF_BASE_MS")

	envStr(&c.SheetID, "SHEET_ID")
	envStr(&c.EventsSheetName, "EVENTS_SHEET_NAME")
	envStr(&c.GoogleServiceAccountJSONB64, "GOOGLE_SERVICE_ACCOUNT_JSON_B64")
	envStr(&c.GoogleServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")

	envStr(&c.GASWebappURL, "GAS_WEBAPP_URL")
	envStr(&c.ITPlaylabSecret, "ITPLAYLAB_SECRET")
	envInt64(&c.GASTimeoutMs, "GAS_TIMEOUT_MS")

	envToggle(&c.JSONLFallback, "JSONL_FALLBACK")
	envToggle(&c.JSONLAlways, "JSONL_ALWAYS")
	envStr(&c.JSONLDir, "JSONL_DIR")
	envStr(&c.JSONLFile, "JSONL_FILE")
	envInt64(&c.JSONLMaxBytes, "JSONL_MAX_BYTES")
	envInt64(&c.JSONLTailMaxBytes, "JSONL_TAIL_MAX_BYTES")

	envToggle(&c.ReplayEnabled, "REPLAY_ENABLED")
	envInt64(&c.ReplayIntervalMs, "REPLAY_INTERVAL_MS")
	envInt(&c.ReplayBatchSize, "REPLAY_BATCH_SIZE")
	envInt64(&c.ReplayMaxBytesPerTick, "REPLAY_MAX_BYTES_PER_TICK")
	envReplayMode(&c.ReplayMode, "REPLAY_MODE")
	envStr(&c.ReplayStateFile, "REPLAY_STATE_FILE")

	envStr(&c.LogLevel, "LOG_LEVEL")
}

// Validate rejects unknown enum selections eagerly instead of silently
// falling back, per SPEC_FULL.md's boot-validation addition.
func (c *Config) Validate() error {
	switch c.OpsMode {
	case ModeEcho, ModeStore, ModeFull:
	default:
		return fmt.Errorf("invalid OPS_MODE %q: must be ECHO, STORE, or FULL", c.OpsMode)
	}
	switch c.ReplayMode {
	case ReplayFallbackOnly, ReplayAll:
	default:
		return fmt.Errorf("invalid REPLAY_MODE %q: must be FALLBACK_ONLY or ALL", c.ReplayMode)
	}
	return nil
}

// --- Mode Machine (C13) derived activation ---

// DedupeActive reports whether C2/C3 (dedup window + summary ring) run.
func (c *Config) DedupeActive() bool { return c.OpsMode == ModeStore || c.OpsMode == ModeFull }

// QueueActive reports whether C4+C10 (forward queue + queue worker) run.
func (c *Config) QueueActive() bool { return c.OpsMode == ModeFull && c.ExternalSync }

// SpoolActive reports whether any JSONL write path is armed.
func (c *Config) SpoolActive() bool { return c.OpsMode == ModeFull && (c.JSONLAlways || c.JSONLFallback) }

// ReplayActive reports whether the replay worker runs.
func (c *Config) ReplayActive() bool { return c.OpsMode == ModeFull && c.ReplayEnabled }

func (c *Config) WorkerInterval() time.Duration   { return time.Duration(c.WorkerIntervalMs) * time.Millisecond }
func (c *Config) WorkerBackoffBaseDur() time.Duration {
	return time.Duration(c.WorkerBackoffBase) * time.Millisecond
}
func (c *Config) GASTimeout() time.Duration { return time.Duration(c.GASTimeoutMs) * time.Millisecond }
func (c *Config) ReplayInterval() time.Duration {
	return time.Duration(c.ReplayIntervalMs) * time.Millisecond
}
func (c *Config) DedupeWindow() time.Duration { return time.Duration(c.DedupeWindowMs) * time.Millisecond }

// --- env helpers ---

func envStr(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(dst *int64, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envToggle(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = strings.EqualFold(v, "ON")
	}
}

func envMode(dst *OpsMode, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = OpsMode(strings.ToUpper(v))
	}
}

func envReplayMode(dst *ReplayMode, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = ReplayMode(strings.ToUpper(v))
	}
}

// envBytesSize parses sizes like "2mb", "512kb", or a bare byte count.
func envBytesSize(dst *int64, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	v = strings.TrimSpace(strings.ToLower(v))
	mult := int64(1)
	switch {
	case strings.HasSuffix(v, "mb"):
		mult = 1 << 20
		v = strings.TrimSuffix(v, "mb")
	case strings.HasSuffix(v, "kb"):
		mult = 1 << 10
		v = strings.TrimSuffix(v, "kb")
	case strings.HasSuffix(v, "gb"):
		mult = 1 << 30
		v = strings.TrimSuffix(v, "gb")
	}
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = int64(n * float64(mult))
	}
}
