package configwatcher

import (
	"fmt"
	"interview_assistant_backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(path, uploads string, maxCount int) error {
	body := fmt.Sprintf("storage:\n  local_path: %s\nallocator:\n  max_count: %d\n", uploads, maxCount)
	return os.WriteFile(path, []byte(body), 0644)
}

func waitReady(t *testing.T, ready <-chan struct{}) {
	t.Helper()
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not start")
	}
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, writeConfig(path, uploads, 50))

	reloaded := make(chan *config.Config, 8)
	ready := make(chan struct{})
	go watch(path, func(cfg *config.Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, ready)
	waitReady(t, ready)

	// 只写一次，之后保持安静让防抖计时器触发
	require.NoError(t, writeConfig(path, uploads, 20))

	select {
	case got := <-reloaded:
		assert.Equal(t, 20, got.Allocator.MaxCount)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatchConfigCoalescesBurstOfWrites(t *testing.T) {
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, writeConfig(path, uploads, 50))

	reloaded := make(chan *config.Config, 8)
	ready := make(chan struct{})
	go watch(path, func(cfg *config.Config) { reloaded <- cfg }, ready)
	waitReady(t, ready)

	for n := 21; n <= 23; n++ {
		require.NoError(t, writeConfig(path, uploads, n))
		time.Sleep(100 * time.Millisecond)
	}

	select {
	case got := <-reloaded:
		assert.Equal(t, 23, got.Allocator.MaxCount)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	select {
	case extra := <-reloaded:
		t.Fatalf("unexpected second reload with max_count %d", extra.Allocator.MaxCount)
	case <-time.After(1500 * time.Millisecond):
	}
}
