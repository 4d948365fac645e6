package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "assettrack"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ASSETTRACK_DB_DSN"
	EnvDBHost = "ASSETTRACK_DB_HOST"
	EnvDBUser = "ASSETTRACK_DB_USER"
	EnvDBName = "ASSETTRACK_DB_NAME"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Audit         AuditConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ASSETTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"ASSETTRACK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASSETTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASSETTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ASSETTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ASSETTRACK_DB_DSN"`
	Driver string `envconfig:"ASSETTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ASSETTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"ASSETTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASSETTRACK_DB_USER"`
	LegacyPassword string `envconfig:"ASSETTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASSETTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASSETTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASSETTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASSETTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASSETTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASSETTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASSETTRACK_REDIS_URL" required:"true"`
	Password     string        `envconfig:"ASSETTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASSETTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASSETTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASSETTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASSETTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASSETTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASSETTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASSETTRACK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASSETTRACK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ASSETTRACK_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"ASSETTRACK_SESSION_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL converts the configured session lifetime to a duration.
func (c JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ASSETTRACK_PASSWORD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ASSETTRACK_PASSWORD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ASSETTRACK_PASSWORD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ASSETTRACK_PASSWORD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ASSETTRACK_PASSWORD_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ASSETTRACK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASSETTRACK_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASSETTRACK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ASSETTRACK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASSETTRACK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"ASSETTRACK_PUBSUB_DOMAIN_TOPIC" default:"assettrack-domain-events"`
	DomainSubscription string `envconfig:"ASSETTRACK_PUBSUB_DOMAIN_SUBSCRIPTION" default:"assettrack-domain-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ASSETTRACK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ASSETTRACK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ASSETTRACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"ASSETTRACK_CRON_INTERVAL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"ASSETTRACK_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
}

type AuditConfig struct {
	// DefaultDiscoveryNote is stamped on audits for scans that matched no asset.
	DefaultDiscoveryNote string `envconfig:"ASSETTRACK_AUDIT_DISCOVERY_NOTE" default:"Asset discovered during audit - not in system"`
}

// ensureDSN accepts either a full DSN or the discrete host/user/name
// variables older deployments set, assembling the latter into a postgres URL.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for _, part := range []struct {
		env   string
		value string
	}{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}

	db.DSN = u.String()
	return nil
}
