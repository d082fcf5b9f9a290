package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("STORE", "")
	t.Setenv("SESSION_TTL", "")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("STORE", "MEMORY")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "abc")
	t.Setenv("NOTIFIER_WORKERS", "-3")
	t.Setenv("SESSION_TTL", "forever")

	cfg := Load()
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 4, cfg.NotifierWorkers)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
}
