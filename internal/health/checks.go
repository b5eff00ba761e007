// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/persistence/sqlite"
	"github.com/voxhire/voxhire/internal/session"
)

// StoreChecker verifies the session store answers reads.
func StoreChecker(store session.Store) Checker {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, "health-probe")
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return fmt.Errorf("session store: %w", err)
		}
		return nil
	}
}

// SQLiteChecker runs a quick integrity check against the store database.
// Registered as optional: a corrupt file degrades readiness without taking
// the process out of rotation while reads still work.
func SQLiteChecker(path string) Checker {
	return func(context.Context) error {
		issues, err := sqlite.VerifyIntegrity(path, "quick")
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if len(issues) > 0 {
			return fmt.Errorf("sqlite: integrity check reported %d issues", len(issues))
		}
		return nil
	}
}

// SMTPChecker verifies the mail relay accepts TCP connections. Registered
// as optional: report email is best-effort.
func SMTPChecker(cfg config.EmailConfig) Checker {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return func(ctx context.Context) error {
		if cfg.Host == "" {
			return errors.New("smtp: not configured")
		}
		d := net.Dialer{Timeout: 3 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		return conn.Close()
	}
}

// LLMChecker reports whether the analysis backend is configured. A missing
// LLM degrades to the heuristic fallbacks, so this is optional too.
func LLMChecker(configured func() bool) Checker {
	return func(context.Context) error {
		if !configured() {
			return errors.New("llm: not configured, using fallbacks")
		}
		return nil
	}
}
