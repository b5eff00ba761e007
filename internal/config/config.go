// SPDX-License-Identifier: MIT

// Package config loads and validates the voxhired runtime configuration.
//
// Precedence: environment variables override the optional YAML file, which
// overrides built-in defaults. The effective config is immutable; hot reload
// swaps a new value atomically via Holder.
package config

import (
	"time"
)

// Config is the effective runtime configuration for the voxhired daemon.
type Config struct {
	Listen   string `yaml:"listen"`
	DataDir  string `yaml:"data_dir"`
	APIToken string `yaml:"api_token"`
	MaxConns int    `yaml:"max_conns"`

	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Documents DocumentsConfig `yaml:"documents"`
	LLM       LLMConfig       `yaml:"llm"`
	Email     EmailConfig     `yaml:"email"`
	RTC       RTCConfig       `yaml:"rtc"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// StoreConfig selects and parameterizes the session store backend.
type StoreConfig struct {
	Backend string        `yaml:"backend"` // memory | file | badger | sqlite | redis
	Path    string        `yaml:"path"`    // dir (file, badger) or db file (sqlite)
	TTL     time.Duration `yaml:"ttl"`     // redis key TTL, 0 = no expiry
}

// DocumentsConfig bounds uploaded interview documents.
type DocumentsConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LLMConfig points to an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// EmailConfig configures SMTP report dispatch. Disabled when Host is empty.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// HRAddr receives a copy of every candidate report when set.
	HRAddr string `yaml:"hr_addr"`
}

// RTCConfig configures the realtime gateway and its join tokens.
type RTCConfig struct {
	// PublicURL is the websocket base handed to clients in session
	// descriptors, e.g. "ws://host:8085/rtc".
	PublicURL   string        `yaml:"public_url"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// RedisConfig is shared by the redis store backend and the dashboard cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	ExporterType string  `yaml:"exporter"` // grpc | http | noop
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Listen:   ":8085",
		DataDir:  "./data",
		MaxConns: 256,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Backend: "file",
		},
		Documents: DocumentsConfig{
			MaxUploadBytes: 10 << 20,
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
		},
		Email: EmailConfig{
			Port: 587,
		},
		RTC: RTCConfig{
			PublicURL: "ws://127.0.0.1:8085/rtc",
			TokenTTL:  time.Hour,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "noop",
			Environment:  "development",
			SamplingRate: 1.0,
		},
	}
}

// FromEnv overlays VOXHIRE_* environment variables onto cfg and returns the result.
func FromEnv(cfg Config) Config {
	cfg.Listen = ParseString("VOXHIRE_LISTEN", cfg.Listen)
	cfg.DataDir = ParseString("VOXHIRE_DATA_DIR", cfg.DataDir)
	cfg.APIToken = ParseString("VOXHIRE_API_TOKEN", cfg.APIToken)
	cfg.MaxConns = ParseInt("VOXHIRE_MAX_CONNS", cfg.MaxConns)

	cfg.Log.Level = ParseString("VOXHIRE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = ParseString("VOXHIRE_LOG_FORMAT", cfg.Log.Format)

	cfg.Store.Backend = ParseString("VOXHIRE_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = ParseString("VOXHIRE_STORE_PATH", cfg.Store.Path)
	cfg.Store.TTL = ParseDuration("VOXHIRE_STORE_TTL", cfg.Store.TTL)

	cfg.Documents.MaxUploadBytes = int64(ParseInt("VOXHIRE_MAX_UPLOAD_BYTES", int(cfg.Documents.MaxUploadBytes)))

	cfg.LLM.BaseURL = ParseString("VOXHIRE_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = ParseString("VOXHIRE_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = ParseString("VOXHIRE_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Timeout = ParseDuration("VOXHIRE_LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.RequestsPerMinute = ParseInt("VOXHIRE_LLM_RPM", cfg.LLM.RequestsPerMinute)

	cfg.Email.Host = ParseString("VOXHIRE_SMTP_HOST", cfg.Email.Host)
	cfg.Email.Port = ParseInt("VOXHIRE_SMTP_PORT", cfg.Email.Port)
	cfg.Email.Username = ParseString("VOXHIRE_SMTP_USERNAME", cfg.Email.Username)
	cfg.Email.Password = ParseString("VOXHIRE_SMTP_PASSWORD", cfg.Email.Password)
	cfg.Email.From = ParseString("VOXHIRE_SMTP_FROM", cfg.Email.From)
	cfg.Email.HRAddr = ParseString("VOXHIRE_SMTP_HR", cfg.Email.HRAddr)

	cfg.RTC.PublicURL = ParseString("VOXHIRE_RTC_PUBLIC_URL", cfg.RTC.PublicURL)
	cfg.RTC.TokenSecret = ParseString("VOXHIRE_RTC_TOKEN_SECRET", cfg.RTC.TokenSecret)
	cfg.RTC.TokenTTL = ParseDuration("VOXHIRE_RTC_TOKEN_TTL", cfg.RTC.TokenTTL)

	cfg.Redis.Addr = ParseString("VOXHIRE_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("VOXHIRE_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("VOXHIRE_REDIS_DB", cfg.Redis.DB)

	cfg.Telemetry.Enabled = ParseBool("VOXHIRE_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString("VOXHIRE_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.ExporterType = ParseString("VOXHIRE_OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Environment = ParseString("VOXHIRE_OTEL_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = ParseFloat("VOXHIRE_OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	return cfg
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path, then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := loadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	cfg = FromEnv(cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
