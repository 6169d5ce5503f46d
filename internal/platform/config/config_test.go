package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompetitionFromEnvDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("COMPLIANCE_TIMEOUT", "")

	cfg := CompetitionFromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.ComplianceTimeout)
	assert.Equal(t, 30*time.Second, cfg.ComplianceRetryIn)
	assert.Equal(t, 5, cfg.Consumer.MaxAttempts)
	assert.Equal(t, "competition", cfg.Kafka.ConsumerGroup)
	assert.False(t, cfg.Kafka.Enabled())
	assert.NotEmpty(t, cfg.Token.SigningKey)
}

func TestCompetitionFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("COMPLIANCE_TIMEOUT", "750ms")
	t.Setenv("CONSUMER_MAX_ATTEMPTS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := CompetitionFromEnv()

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.ComplianceTimeout)
	assert.Equal(t, 3, cfg.Consumer.MaxAttempts)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("COMPLIANCE_TIMEOUT", "soon")
	t.Setenv("CONSUMER_MAX_ATTEMPTS", "-1")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := CompetitionFromEnv()

	assert.Equal(t, 2*time.Second, cfg.ComplianceTimeout)
	assert.Equal(t, 5, cfg.Consumer.MaxAttempts)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestComplianceWarningWindow(t *testing.T) {
	t.Setenv("EXPIRY_WARNING_WINDOW", "")
	assert.Equal(t, 30*24*time.Hour, ComplianceFromEnv().ExpiryWarningWindow)
}
