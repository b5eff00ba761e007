// SPDX-License-Identifier: MIT

package session

import (
	"fmt"
	"path/filepath"

	"github.com/voxhire/voxhire/internal/config"
)

// OpenStore constructs the session store selected by cfg.Backend.
//
// Path-based backends fall back to a directory under dataDir when
// cfg.Path is empty, so a bare default config works out of the box.
func OpenStore(cfg config.StoreConfig, redisCfg config.RedisConfig, dataDir string) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(pathOr(cfg.Path, filepath.Join(dataDir, "sessions")))
	case "badger":
		return OpenBadgerStore(pathOr(cfg.Path, filepath.Join(dataDir, "badger")))
	case "sqlite":
		return NewSqliteStore(pathOr(cfg.Path, filepath.Join(dataDir, "voxhire.sqlite")))
	case "redis":
		return NewRedisStore(redisCfg, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: memory, file, badger, sqlite, redis)", cfg.Backend)
	}
}

func pathOr(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}
