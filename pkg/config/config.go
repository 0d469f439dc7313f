package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Platform     PlatformConfig
	Fees         FeeConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOTMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"LOTMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOTMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOTMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"LOTMARKET_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"LOTMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOTMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOTMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOTMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOTMARKET_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"LOTMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOTMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOTMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOTMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOTMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"LOTMARKET_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LOTMARKET_JWT_ISSUER" required:"true"`
}

// PlatformConfig identifies the marketplace-owned accounts. The owner
// account receives fees; the escrow account holds listed assets between
// create and buy/unlist.
type PlatformConfig struct {
	OwnerAccountID  string `envconfig:"LOTMARKET_PLATFORM_OWNER_ACCOUNT_ID" required:"true"`
	EscrowAccountID string `envconfig:"LOTMARKET_PLATFORM_ESCROW_ACCOUNT_ID" required:"true"`
}

func (p PlatformConfig) validate() error {
	if _, err := uuid.Parse(p.OwnerAccountID); err != nil {
		return fmt.Errorf("invalid platform owner account id: %w", err)
	}
	if _, err := uuid.Parse(p.EscrowAccountID); err != nil {
		return fmt.Errorf("invalid platform escrow account id: %w", err)
	}
	return nil
}

// Owner returns the parsed owner account id. Call after Load.
func (p PlatformConfig) Owner() uuid.UUID {
	return uuid.MustParse(p.OwnerAccountID)
}

// Escrow returns the parsed escrow account id. Call after Load.
func (p PlatformConfig) Escrow() uuid.UUID {
	return uuid.MustParse(p.EscrowAccountID)
}

// FeeConfig expresses the flat platform commission as an integer numerator
// over the fixed 10^10 denominator. The default is 2.5%.
type FeeConfig struct {
	RateNumerator int64 `envconfig:"LOTMARKET_FEE_RATE_NUMERATOR" default:"250000000"`
}

const feeRateDenominator = int64(10_000_000_000)

func (f FeeConfig) validate() error {
	if f.RateNumerator < 0 || f.RateNumerator > feeRateDenominator {
		return fmt.Errorf("fee rate numerator %d out of range [0, %d]", f.RateNumerator, feeRateDenominator)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOTMARKET_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"LOTMARKET_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LOTMARKET_PUBSUB_DOMAIN_TOPIC" default:"lotmarket-domain-events"`
	DomainSubscription string `envconfig:"LOTMARKET_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize        int `envconfig:"LOTMARKET_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS   int `envconfig:"LOTMARKET_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts      int `envconfig:"LOTMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeoutMS int `envconfig:"LOTMARKET_OUTBOX_PUBLISH_TIMEOUT_MS" default:"15000"`
}
