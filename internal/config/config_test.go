package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, ModeSync, cfg.Dispatch.Mode)
	assert.Equal(t, 72*time.Hour, cfg.Retention.EventTTL)
	assert.Equal(t, 72*time.Hour, cfg.Retention.NotificationTTL)
	assert.Equal(t, 5*time.Minute, cfg.TemplateCache.TTL)
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
dispatch:
  mode: queue
  queue: tasks
  dead_letter_queue: tasks:dead
worker:
  concurrency: 8
  retry_delay: 500ms
retention:
  event_ttl: 24h
smtp:
  host: smtp.example.com
  from_email: noreply@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ModeQueue, cfg.Dispatch.Mode)

	consumer := cfg.ToConsumerConfig()
	assert.Equal(t, "tasks", consumer.Queue)
	assert.Equal(t, "tasks:dead", consumer.DeadLetterQueue)
	assert.Equal(t, 8, consumer.Concurrency)
	assert.Equal(t, 500*time.Millisecond, consumer.RetryDelay)

	assert.Equal(t, 24*time.Hour, cfg.Retention.EventTTL)
	assert.True(t, cfg.SMTP.ToMailerConfig().Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "dispatch:\n  mode: sync\n")
	t.Setenv("EVENTHUB_DISPATCH_MODE", "QUEUE")
	t.Setenv("EVENTHUB_SERVER_PORT", "7070")
	t.Setenv("EVENTHUB_RETENTION_NOTIFICATION_TTL", "1h")
	t.Setenv("EVENTHUB_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeQueue, cfg.Dispatch.Mode)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Retention.NotificationTTL)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"unknown mode", "dispatch:\n  mode: kafka\n"},
		{"queue without url", "dispatch:\n  mode: queue\nredis:\n  url: \"\"\n"},
		{"zero ttl", "retention:\n  event_ttl: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
