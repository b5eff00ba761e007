// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validStoreBackends = map[string]bool{
	"memory": true,
	"file":   true,
	"badger": true,
	"sqlite": true,
	"redis":  true,
}

var validExporters = map[string]bool{
	"grpc": true,
	"http": true,
	"noop": true,
}

// Validate fail-fast checks the effective configuration. The daemon refuses
// to start on any error returned here.
func Validate(cfg Config) error {
	var errs []error

	if cfg.Listen == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if cfg.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	if cfg.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("max_conns must be positive, got %d", cfg.MaxConns))
	}

	if !validStoreBackends[cfg.Store.Backend] {
		errs = append(errs, fmt.Errorf("unknown store backend %q (valid: memory, file, badger, sqlite, redis)", cfg.Store.Backend))
	}
	if cfg.Store.Backend == "redis" && cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("store backend redis requires redis.addr"))
	}

	if cfg.Documents.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive, got %d", cfg.Documents.MaxUploadBytes))
	}

	if cfg.LLM.BaseURL != "" {
		if err := checkHTTPURL(cfg.LLM.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("llm.base_url: %w", err))
		}
	}
	if cfg.LLM.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("llm.requests_per_minute must not be negative, got %d", cfg.LLM.RequestsPerMinute))
	}

	if cfg.Email.Host != "" {
		if cfg.Email.Port <= 0 || cfg.Email.Port > 65535 {
			errs = append(errs, fmt.Errorf("email.port out of range: %d", cfg.Email.Port))
		}
		if cfg.Email.From == "" {
			errs = append(errs, errors.New("email.from required when email.host is set"))
		}
	}

	if err := checkWSURL(cfg.RTC.PublicURL); err != nil {
		errs = append(errs, fmt.Errorf("rtc.public_url: %w", err))
	}
	if cfg.RTC.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("rtc.token_ttl must be positive, got %s", cfg.RTC.TokenTTL))
	}

	if cfg.Telemetry.Enabled {
		if !validExporters[cfg.Telemetry.ExporterType] {
			errs = append(errs, fmt.Errorf("unknown telemetry exporter %q (valid: grpc, http, noop)", cfg.Telemetry.ExporterType))
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sampling_rate must be in [0,1], got %g", cfg.Telemetry.SamplingRate))
		}
	}

	return errors.Join(errs...)
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func checkWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// MaskSecret redacts a secret for logging, keeping only a short prefix.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", 6)
}
