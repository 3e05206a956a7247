package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Cart          CartConfig
	Sendgrid      SendgridConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"STORELY_APP_ENV" required:"true"`
	Port         string `envconfig:"STORELY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STORELY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STORELY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STORELY_DB_DSN"`
	Driver string `envconfig:"STORELY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORELY_DB_HOST"`
	LegacyPort     int    `envconfig:"STORELY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORELY_DB_USER"`
	LegacyPassword string `envconfig:"STORELY_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORELY_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORELY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORELY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORELY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORELY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORELY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORELY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STORELY_REDIS_ADDR"`
	Password     string        `envconfig:"STORELY_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORELY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORELY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORELY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORELY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORELY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORELY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STORELY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORELY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STORELY_JWT_EXPIRATION_MINUTES" required:"true"`
}

// AccessTokenTTL returns the access token lifetime configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STORELY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STORELY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STORELY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STORELY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STORELY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STORELY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STORELY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STORELY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STORELY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STORELY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STORELY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// CartConfig tunes the per-user locks guarding cart mutation and checkout.
// In-progress carts themselves carry no TTL.
type CartConfig struct {
	MutationLockTTL time.Duration `envconfig:"STORELY_CART_MUTATION_LOCK_TTL" default:"5s"`
	CheckoutLockTTL time.Duration `envconfig:"STORELY_CART_CHECKOUT_LOCK_TTL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORELY_FEATURE_AUTO_MIGRATE" default:"false"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"STORELY_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"STORELY_SENDGRID_FROM_EMAIL"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
