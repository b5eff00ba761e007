// SPDX-License-Identifier: MIT

// Package dashboard aggregates session statistics for the operator view.
package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voxhire/voxhire/internal/log"
	"github.com/voxhire/voxhire/internal/metrics"
	"github.com/voxhire/voxhire/internal/session"
	"github.com/voxhire/voxhire/internal/types"
)

const (
	cacheKey = "dash:stats"
	cacheTTL = 30 * time.Second
)

// Stats is one aggregate snapshot. Staleness up to the cache TTL is
// acceptable; the dashboard is advisory, not authoritative.
type Stats struct {
	TotalSessions  int            `json:"total_sessions"`
	ByStatus       map[string]int `json:"by_status"`
	SessionsToday  int            `json:"sessions_today"`
	CompletionRate float64        `json:"completion_rate"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Service computes dashboard statistics from the session store, caching
// snapshots in redis when a client is configured.
type Service struct {
	store  session.Store
	cache  *redis.Client
	logger zerolog.Logger

	now func() time.Time
}

// NewService builds a dashboard service. cache may be nil; stats are then
// recomputed on every request.
func NewService(store session.Store, cache *redis.Client) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log.WithComponent("dashboard"),
		now:    time.Now,
	}
}

// Stats returns the current aggregate snapshot, served from cache when a
// fresh one exists.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, stats)
	return stats, nil
}

func (s *Service) compute(ctx context.Context) (*Stats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &Stats{
		TotalSessions: len(all),
		ByStatus:      make(map[string]int),
		GeneratedAt:   now,
	}
	completed := 0
	for _, sess := range all {
		stats.ByStatus[sess.Status.String()]++
		if !sess.CreatedAt.Before(midnight) {
			stats.SessionsToday++
		}
		if sess.Status == types.StatusCompleted {
			completed++
		}
	}
	if stats.TotalSessions > 0 {
		stats.CompletionRate = float64(completed) / float64(stats.TotalSessions)
	}

	for status, n := range stats.ByStatus {
		metrics.SetSessionsByStatus(status, n)
	}
	return stats, nil
}

func (s *Service) fromCache(ctx context.Context) *Stats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("event", "dashboard.cache_read_failed").Msg("stats cache unavailable")
		}
		return nil
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.Warn().Err(err).Str("event", "dashboard.cache_corrupt").Msg("dropping unreadable stats cache entry")
		return nil
	}
	return &stats
}

func (s *Service) toCache(ctx context.Context, stats *Stats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("event", "dashboard.cache_write_failed").Msg("stats cache unavailable")
	}
}
