package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration assembled from the environment.
type Config struct {
	Server   Server
	Ledger   Ledger
	Redis    RedisConfig
	Database Database
	Kafka    Kafka
	Verify   Verify
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	WebhookSecret string // HS256 secret for webhook bearer tokens; empty disables auth
}

// Ledger configures the distributed-ledger client. All three values are
// injected; nothing in the ledger package reads the environment directly.
type Ledger struct {
	RPCEndpoint     string
	ContractAddress string
	OperatorAddress string
	OperatorKey     string
	RequestTimeout  time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Database holds PostgreSQL connection configuration.
type Database struct {
	URL string
}

// Kafka configures the optional inbound verification-request consumer.
type Kafka struct {
	Brokers string
	GroupID string
	Topic   string
}

// Verify tunes the verification dispatcher and session retention.
type Verify struct {
	Workers    int
	QueueSize  int
	SessionTTL time.Duration
}

// SessionTTL is how long a session record is retained from creation.
var SessionTTL = 24 * time.Hour

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("VERITOK_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	env := os.Getenv("VERITOK_ENV")
	if env == "" {
		env = "development"
	}

	ledgerTimeout := durationFromEnv("LEDGER_REQUEST_TIMEOUT", 30*time.Second)
	sessionTTL := durationFromEnv("SESSION_TTL", SessionTTL)

	return Config{
		Server: Server{
			Addr:          addr,
			Environment:   env,
			WebhookSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
		},
		Ledger: Ledger{
			RPCEndpoint:     os.Getenv("LEDGER_RPC_ENDPOINT"),
			ContractAddress: os.Getenv("LEDGER_CONTRACT_ADDRESS"),
			OperatorAddress: os.Getenv("LEDGER_OPERATOR_ADDRESS"),
			OperatorKey:     os.Getenv("LEDGER_OPERATOR_KEY"),
			RequestTimeout:  ledgerTimeout,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intFromEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intFromEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Kafka: Kafka{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			GroupID: envOr("KAFKA_GROUP_ID", "veritok-verifier"),
			Topic:   envOr("KAFKA_VERIFICATION_TOPIC", "verification.requested"),
		},
		Verify: Verify{
			Workers:    intFromEnv("VERIFY_WORKERS", 4),
			QueueSize:  intFromEnv("VERIFY_QUEUE_SIZE", 256),
			SessionTTL: sessionTTL,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
