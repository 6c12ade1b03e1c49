package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qcli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.LogLevel)
	assert.Empty(t, cfg.Queues)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
logger:
  log_level: debug
  file_log_name: /tmp/qcli.log
  compress: true
queues:
  - name: jobs
    capacity: 8
    enqueue_timeout_ms: 100
  - name: events
    capacity: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.LogLevel)
	assert.Equal(t, "/tmp/qcli.log", cfg.Logger.FileLogName)
	assert.True(t, cfg.Logger.Compress)
	// 未设置的字段保留默认值
	assert.Equal(t, 10, cfg.Logger.MaxSize)

	require.Len(t, cfg.Queues, 2)
	assert.Equal(t, Queue{Name: "jobs", Capacity: 8, EnqueueTimeoutMs: 100}, cfg.Queues[0])
	assert.Equal(t, "events", cfg.Queues[1].Name)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "zero capacity",
			content: "queues:\n  - {name: jobs, capacity: 0}\n",
			wantErr: "capacity must be positive",
		},
		{
			name:    "duplicate name",
			content: "queues:\n  - {name: jobs, capacity: 1}\n  - {name: jobs, capacity: 2}\n",
			wantErr: "duplicate name",
		},
		{
			name:    "empty name",
			content: "queues:\n  - {capacity: 1}\n",
			wantErr: "invalid name",
		},
		{
			name:    "negative timeout",
			content: "queues:\n  - {name: jobs, capacity: 1, dequeue_timeout_ms: -1}\n",
			wantErr: "timeouts must not be negative",
		},
		{
			name:    "bad level",
			content: "logger: {log_level: verbose}\n",
			wantErr: "unknown log level",
		},
		{
			name:    "malformed yaml",
			content: "queues: [",
			wantErr: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
