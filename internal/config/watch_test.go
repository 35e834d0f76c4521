package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	base := `
dev:
  authEnabled: true
  secret: test-secret
rate:
  general: 100
  query: 10
toolServers:
  - name: hr
    baseUrl: http://localhost:8081
`
	require.NoError(t, os.WriteFile(path, []byte(base), 0o644))

	changes := make(chan ReloadableFields, 4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	watcher := NewWatcher(path, logger, func(fields ReloadableFields) {
		changes <- fields
	})
	watcher.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	defer watcher.Close()

	updated := `
dev:
  authEnabled: true
  secret: test-secret
rate:
  general: 250
  query: 10
toolServers:
  - name: hr
    baseUrl: http://localhost:8081
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case fields := <-changes:
		require.Equal(t, float64(250), fields.Rate.General)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
