// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxhire/voxhire/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = "memory"
	cfg.RTC.TokenSecret = "test-secret"
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestAssembleWiresTheFullSurface(t *testing.T) {
	d, err := assemble(context.Background(), testConfig(t), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.store.Close() })

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		d.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	d.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssembleFailsFastOnBadStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "unknown"

	_, err := assemble(context.Background(), cfg, Options{})
	require.Error(t, err)
}

func TestAssembleFailsFastWithoutTokenSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.RTC.TokenSecret = ""

	_, err := assemble(context.Background(), cfg, Options{})
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	d, err := assemble(context.Background(), testConfig(t), Options{ShutdownTimeout: 2 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation drains cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
}
