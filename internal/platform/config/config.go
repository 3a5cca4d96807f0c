package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, assembled from the environment so main stays lean.
type Config struct {
	Server       Server
	Auth         Auth
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	SMS          SMSConfig
	Verification VerificationConfig
	Fraud        FraudConfig
	Eligibility  EligibilityConfig
	LogLevel     string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	TrustedProxies  string
	CORSOrigins     []string
}

// Auth holds token validation and admin gate settings.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
	AdminActors   []string
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
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

// KafkaConfig configures the audit outbox publisher. Empty Brokers disables publishing.
type KafkaConfig struct {
	Brokers         string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// RateLimitConfig selects the bucket store backend: memory, redis or postgres.
// Overrides adjusts per-category budgets, e.g. "verify_code=60/10".
type RateLimitConfig struct {
	Backend   string
	Overrides string
}

// SMSConfig configures code delivery.
type SMSConfig struct {
	Provider     string // "log" or "sns"
	AWSRegion    string
	SenderID     string
	MaxPerSecond float64
	QueueSize    int
	Workers      int
}

// VerificationConfig configures phone code issuance.
type VerificationConfig struct {
	CodeTTL         time.Duration
	MaxFailedChecks int
	HashCost        int
}

// FraudConfig holds the routing thresholds and the GeoIP table used by the scorer.
type FraudConfig struct {
	LowThreshold  int
	HighThreshold int
	GeoIPRegions  string // "203.0.113.0/24=us-west;198.51.100.0/24=eu-central"
}

// EligibilityConfig holds claim admission policy.
type EligibilityConfig struct {
	SingleActiveClaimPerUser bool
	RejectionCooldown        time.Duration
}

// FromEnv builds a Config from environment variables. A local .env file is
// loaded first when present; real environment variables take precedence.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Server: Server{
			Addr:            getString("PLACECLAIM_ADDR", ":8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedProxies:  getString("TRUSTED_PROXIES", ""),
			CORSOrigins:     getList("CORS_ALLOWED_ORIGINS"),
		},
		Auth: Auth{
			// Development default; production deployments must override it.
			JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getString("JWT_ISSUER", ""),
			JWTAudience:   getString("JWT_AUDIENCE", ""),
			AdminToken:    getString("ADMIN_API_TOKEN", ""),
			AdminActors:   getList("ADMIN_ACTOR_IDS"),
		},
		Database: DatabaseConfig{
			URL:             getString("DATABASE_URL", ""),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getString("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         getString("KAFKA_BROKERS", ""),
			AuditTopic:      getString("KAFKA_AUDIT_TOPIC", "placeclaim.claim.audit"),
			Acks:            getString("KAFKA_ACKS", "all"),
			Retries:         getInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: getDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			Backend:   getString("RATE_LIMIT_BACKEND", "memory"),
			Overrides: getString("RATE_LIMIT_OVERRIDES", ""),
		},
		SMS: SMSConfig{
			Provider:     getString("SMS_PROVIDER", "log"),
			AWSRegion:    getString("AWS_REGION", "us-east-1"),
			SenderID:     getString("SMS_SENDER_ID", ""),
			MaxPerSecond: getFloat("SMS_MAX_PER_SECOND", 10),
			QueueSize:    getInt("SMS_QUEUE_SIZE", 256),
			Workers:      getInt("SMS_WORKERS", 4),
		},
		Verification: VerificationConfig{
			CodeTTL:         getDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
			MaxFailedChecks: getInt("VERIFICATION_MAX_FAILED_CHECKS", 5),
			HashCost:        getInt("VERIFICATION_HASH_COST", 10),
		},
		Fraud: FraudConfig{
			LowThreshold:  getInt("FRAUD_LOW_THRESHOLD", 30),
			HighThreshold: getInt("FRAUD_HIGH_THRESHOLD", 70),
			GeoIPRegions:  getString("GEOIP_REGIONS", ""),
		},
		Eligibility: EligibilityConfig{
			SingleActiveClaimPerUser: getBool("SINGLE_ACTIVE_CLAIM_PER_USER", false),
			RejectionCooldown:        getDuration("CLAIM_REJECTION_COOLDOWN", 0),
		},
		LogLevel: getString("LOG_LEVEL", "info"),
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
