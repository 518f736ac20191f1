package dao_configuration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("STORE", "")
	path := filepath.Join(t.TempDir(), "dao.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: INFO\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *ServerConfig, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *ServerConfig) {
			select {
			case changes <- cfg:
			default:
			}
		})
	}()

	// the watcher may not be registered yet, so keep writing until it reports
	assert.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("logLevel: DEBUG\nstore: memory\n"), 0o600); err != nil {
			return false
		}
		select {
		case cfg := <-changes:
			return cfg.LogLevel == "DEBUG" && cfg.Store == StoreMemory
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchMissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "dao.yaml"), func(*ServerConfig) {})
	assert.Error(t, err)
}
