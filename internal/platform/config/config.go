package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "clubreg/pkg/platform/strings"
)

// Server captures settings shared by every service binary.
type Server struct {
	Addr        string
	DatabaseURL string
	AdminToken  string
	LogLevel    slog.Level
	Redis       RedisConfig
	Kafka       KafkaConfig
	Consumer    ConsumerConfig
	Token       TokenConfig
}

// RedisConfig configures the shared Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures brokers and topic provisioning.
type KafkaConfig struct {
	Brokers           []string
	ConsumerGroup     string
	TopicPartitions   int32
	ReplicationFactor int16
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ConsumerConfig bounds redelivery of failed messages.
type ConsumerConfig struct {
	MaxAttempts int
	Workers     int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// TokenConfig configures HS256 service-to-service tokens.
type TokenConfig struct {
	SigningKey string
	TTL        time.Duration
}

// Compliance configures the compliance service.
type Compliance struct {
	Server
	ExpiryWarningWindow time.Duration
}

// Competition configures the competition service.
type Competition struct {
	Server
	ComplianceBaseURL  string
	ComplianceTimeout  time.Duration
	ComplianceRetryIn  time.Duration
	BreakerFailures    int
	BreakerSuccesses   int
	BreakerCooldown    time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// Billing configures the billing service.
type Billing struct {
	Server
}

// ComplianceFromEnv builds the compliance service config.
func ComplianceFromEnv() Compliance {
	return Compliance{
		Server:              serverFromEnv(":8081", "compliance"),
		ExpiryWarningWindow: durationEnv("EXPIRY_WARNING_WINDOW", 30*24*time.Hour),
	}
}

// CompetitionFromEnv builds the competition service config.
func CompetitionFromEnv() Competition {
	return Competition{
		Server:             serverFromEnv(":8080", "competition"),
		ComplianceBaseURL:  stringEnv("COMPLIANCE_BASE_URL", "http://localhost:8081"),
		ComplianceTimeout:  durationEnv("COMPLIANCE_TIMEOUT", 2*time.Second),
		ComplianceRetryIn:  durationEnv("COMPLIANCE_RETRY_AFTER", 30*time.Second),
		BreakerFailures:    intEnv("COMPLIANCE_BREAKER_FAILURES", 5),
		BreakerSuccesses:   intEnv("COMPLIANCE_BREAKER_SUCCESSES", 1),
		BreakerCooldown:    durationEnv("COMPLIANCE_BREAKER_COOLDOWN", 10*time.Second),
		OutboxPollInterval: durationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:    intEnv("OUTBOX_BATCH_SIZE", 100),
	}
}

// BillingFromEnv builds the billing service config.
func BillingFromEnv() Billing {
	return Billing{Server: serverFromEnv(":8082", "billing")}
}

func serverFromEnv(defaultAddr, service string) Server {
	signingKey := os.Getenv("SERVICE_TOKEN_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-service-token-key-change-in-production"
	}

	return Server{
		Addr:        stringEnv("HTTP_ADDR", defaultAddr),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AdminToken:  os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:    levelEnv("LOG_LEVEL", slog.LevelInfo),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			ConsumerGroup:     stringEnv("KAFKA_CONSUMER_GROUP", service),
			TopicPartitions:   int32(intEnv("KAFKA_TOPIC_PARTITIONS", 6)),
			ReplicationFactor: int16(intEnv("KAFKA_REPLICATION_FACTOR", 1)),
		},
		Consumer: ConsumerConfig{
			MaxAttempts: intEnv("CONSUMER_MAX_ATTEMPTS", 5),
			Workers:     intEnv("CONSUMER_WORKERS", 8),
			BackoffBase: durationEnv("CONSUMER_BACKOFF_BASE", 200*time.Millisecond),
			BackoffMax:  durationEnv("CONSUMER_BACKOFF_MAX", 10*time.Second),
		},
		Token: TokenConfig{
			SigningKey: signingKey,
			TTL:        durationEnv("SERVICE_TOKEN_TTL", 5*time.Minute),
		},
	}
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func levelEnv(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return level
}
