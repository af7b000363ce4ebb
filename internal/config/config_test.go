package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, key := range []string{"SERVER_PORT", "FOLDER_PATH", "SESSION_TTL", "PAGE_SIZE", "THUMBNAIL_WIDTHS", "JOB_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, filepath.Join(os.TempDir(), "files_manager"), cfg.FolderPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, []int{500, 250, 100}, cfg.ThumbnailWidths)
	assert.Equal(t, "fileQueue", cfg.ThumbnailQueue)
	assert.Equal(t, "userQueue", cfg.WelcomeQueue)
	assert.Equal(t, 3, cfg.JobMaxAttempts)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("FOLDER_PATH", "/var/lib/files")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("THUMBNAIL_WIDTHS", "64, 128,64")
	t.Setenv("LOG_JSON", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "/var/lib/files", cfg.FolderPath)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, []int{128, 64}, cfg.ThumbnailWidths)
	assert.True(t, cfg.LogJSON)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("PAGE_SIZE", "twenty")
	t.Setenv("SESSION_TTL", "-5m")
	t.Setenv("THUMBNAIL_WIDTHS", "100,abc")

	cfg := Load()

	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []int{500, 250, 100}, cfg.ThumbnailWidths)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("WORKER_CONCURRENCY=4\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("WORKER_CONCURRENCY", "")
	os.Unsetenv("WORKER_CONCURRENCY")
	t.Cleanup(func() { os.Unsetenv("WORKER_CONCURRENCY") })

	cfg := Load()

	assert.Equal(t, 4, cfg.WorkerConcurrency)
}
