// Package config provides configuration structures and validation for the application.
// It covers the infrastructure (HTTP, Postgres, MongoDB, Redis, Kafka) and the money-movement
// rules the engines need (currencies, hold lifetimes, dispute cool-down and escalation).
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// message queues) and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
	Escrow      EscrowConfig
	Dispute     DisputeConfig
	Payment     PaymentConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	EventsTopic       string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the shared cache configuration.
// When Enabled is false the engines run on the durable store alone.
type RedisConfig struct {
	URL         string
	Enabled     bool
	KeyPrefix   string
	DialTimeout time.Duration
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of retry attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// LedgerConfig contains wallet ledger settings
type LedgerConfig struct {
	DefaultCurrency   string
	DefaultTier       string
	HoldSweepInterval time.Duration // How often expired holds are released
	HoldSweepBatch    int
}

// EscrowConfig contains escrow engine settings
type EscrowConfig struct {
	PlatformOwnerID uuid.UUID // Wallet owner receiving platform fees; uuid.Nil leaves fees with the employer
	CacheTTL        time.Duration
	HoldTTL         time.Duration // Zero means escrow holds never expire
}

// DisputeConfig contains dispute resolution settings
type DisputeConfig struct {
	CoolDown           time.Duration
	HighValueThreshold int64 // Escrow amounts above this need admin confirmation
	LoserPenalty       int
	SharedPenalty      int
}

// PaymentConfig selects the external payment provider
type PaymentConfig struct {
	Provider string
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Enabled && c.Redis.URL == "" {
		validationErrors = append(validationErrors, "REDIS_URL is required when REDIS_ENABLED is true")
	}

	// Validate Ledger config
	if len(c.Ledger.DefaultCurrency) != 3 {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_CURRENCY must be a 3-letter code")
	}
	if c.Ledger.DefaultTier == "" {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_TIER is required")
	}
	if c.Ledger.HoldSweepInterval <= 0 {
		validationErrors = append(validationErrors, "LEDGER_HOLD_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Ledger.HoldSweepBatch <= 0 {
		validationErrors = append(validationErrors, "LEDGER_HOLD_SWEEP_BATCH must be greater than 0")
	}

	// Validate Escrow config
	if c.Escrow.CacheTTL <= 0 {
		validationErrors = append(validationErrors, "ESCROW_CACHE_TTL must be greater than 0")
	}
	if c.Escrow.HoldTTL < 0 {
		validationErrors = append(validationErrors, "ESCROW_HOLD_TTL cannot be negative")
	}

	// Validate Dispute config
	if c.Dispute.CoolDown < 0 {
		validationErrors = append(validationErrors, "DISPUTE_COOL_DOWN cannot be negative")
	}
	if c.Dispute.HighValueThreshold <= 0 {
		validationErrors = append(validationErrors, "DISPUTE_HIGH_VALUE_THRESHOLD must be greater than 0")
	}
	if c.Dispute.LoserPenalty < 0 || c.Dispute.SharedPenalty < 0 {
		validationErrors = append(validationErrors, "DISPUTE penalties cannot be negative")
	}

	// Validate Payment config
	if c.Payment.Provider != "static" {
		validationErrors = append(validationErrors, "PAYMENT_PROVIDER must be one of: static")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
