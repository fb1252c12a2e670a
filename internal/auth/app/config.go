package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/aussiebroadwan/zenith-auth/pkg/cryptox"
)

// MinBcryptCost is the lowest bcrypt cost the service will start with.
const MinBcryptCost = 12

// Config holds the auth service configuration loaded from the environment and
// an optional .env file.
type Config struct {
	// Token signing. Each secret may instead be read from the *_FILE path.
	AccessSecret      string        `mapstructure:"AUTH_ACCESS_SECRET"`
	AccessSecretFile  string        `mapstructure:"AUTH_ACCESS_SECRET_FILE"`
	RefreshSecret     string        `mapstructure:"AUTH_REFRESH_SECRET"`
	RefreshSecretFile string        `mapstructure:"AUTH_REFRESH_SECRET_FILE"`
	Issuer            string        `mapstructure:"AUTH_ISSUER"`
	AccessTTL         time.Duration `mapstructure:"AUTH_ACCESS_TTL"`
	RefreshTTL        time.Duration `mapstructure:"AUTH_REFRESH_TTL"`
	Leeway            time.Duration `mapstructure:"AUTH_TOKEN_LEEWAY"`

	MaxSessions int `mapstructure:"AUTH_MAX_SESSIONS"`
	BcryptCost  int `mapstructure:"AUTH_BCRYPT_COST"`
	HashWorkers int `mapstructure:"AUTH_HASH_WORKERS"`

	// Second factor.
	TOTPIssuer           string        `mapstructure:"AUTH_TOTP_ISSUER"`
	TOTPPeriod           uint          `mapstructure:"AUTH_TOTP_PERIOD"`
	TOTPSkew             uint          `mapstructure:"AUTH_TOTP_SKEW"`
	PendingSetupTTL      time.Duration `mapstructure:"AUTH_PENDING_SETUP_TTL"`
	PendingLoginTTL      time.Duration `mapstructure:"AUTH_PENDING_LOGIN_TTL"`
	EmailCodeTTL         time.Duration `mapstructure:"AUTH_EMAIL_CODE_TTL"`
	RecoveryCodeCount    int           `mapstructure:"AUTH_RECOVERY_CODE_COUNT"`
	MaxTwoFactorAttempts int           `mapstructure:"AUTH_MAX_2FA_ATTEMPTS"`
	TrustedDeviceTTL     time.Duration `mapstructure:"AUTH_TRUSTED_DEVICE_TTL"` // 0 disables remembering devices

	// Service-level limits, keyed by email and session respectively.
	LoginLimit    int           `mapstructure:"AUTH_LOGIN_LIMIT"`
	LoginWindow   time.Duration `mapstructure:"AUTH_LOGIN_WINDOW"`
	RefreshLimit  int           `mapstructure:"AUTH_REFRESH_LIMIT"`
	RefreshWindow time.Duration `mapstructure:"AUTH_REFRESH_WINDOW"`

	PermissionCacheTTL time.Duration `mapstructure:"AUTH_PERMISSION_CACHE_TTL"`
	PolicyEngine       string        `mapstructure:"AUTH_POLICY_ENGINE"` // static or rego
	PolicyFile         string        `mapstructure:"AUTH_POLICY_FILE"`
	StoreTimeout       time.Duration `mapstructure:"AUTH_STORE_TIMEOUT"`

	DatabaseDriver string `mapstructure:"AUTH_DATABASE_DRIVER"` // sqlite or postgres
	DatabaseFile   string `mapstructure:"AUTH_DATABASE_FILE"`
	DatabaseURL    string `mapstructure:"AUTH_DATABASE_URL"`
	RedisURL       string `mapstructure:"AUTH_REDIS_URL"`

	ProviderSalt   string `mapstructure:"AUTH_PROVIDER_SALT"`
	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	BootstrapEmail string `mapstructure:"AUTH_BOOTSTRAP_EMAIL"`
	BootstrapPass  string `mapstructure:"AUTH_BOOTSTRAP_PASSWORD"`

	Env                  string        `mapstructure:"ENV"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
	Port                 int           `mapstructure:"PORT"`
	ShutdownGracePeriod  time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
	HousekeepingInterval time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"`
}

// LoadConfig reads .env if present, overlays the environment and validates
// the result. A missing .env is not an error.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("AUTH_ACCESS_SECRET", "")
	v.SetDefault("AUTH_ACCESS_SECRET_FILE", "")
	v.SetDefault("AUTH_REFRESH_SECRET", "")
	v.SetDefault("AUTH_REFRESH_SECRET_FILE", "")
	v.SetDefault("AUTH_ISSUER", "zenith-auth")
	v.SetDefault("AUTH_ACCESS_TTL", "15m")
	v.SetDefault("AUTH_REFRESH_TTL", "168h")
	v.SetDefault("AUTH_TOKEN_LEEWAY", "5s")
	v.SetDefault("AUTH_MAX_SESSIONS", 5)
	v.SetDefault("AUTH_BCRYPT_COST", MinBcryptCost)
	v.SetDefault("AUTH_HASH_WORKERS", 4)
	v.SetDefault("AUTH_TOTP_ISSUER", "Zenith Platform")
	v.SetDefault("AUTH_TOTP_PERIOD", 30)
	v.SetDefault("AUTH_TOTP_SKEW", 1)
	v.SetDefault("AUTH_PENDING_SETUP_TTL", "10m")
	v.SetDefault("AUTH_PENDING_LOGIN_TTL", "5m")
	v.SetDefault("AUTH_EMAIL_CODE_TTL", "10m")
	v.SetDefault("AUTH_RECOVERY_CODE_COUNT", 10)
	v.SetDefault("AUTH_MAX_2FA_ATTEMPTS", 5)
	v.SetDefault("AUTH_TRUSTED_DEVICE_TTL", "720h")
	v.SetDefault("AUTH_LOGIN_LIMIT", 5)
	v.SetDefault("AUTH_LOGIN_WINDOW", "15m")
	v.SetDefault("AUTH_REFRESH_LIMIT", 10)
	v.SetDefault("AUTH_REFRESH_WINDOW", "1m")
	v.SetDefault("AUTH_PERMISSION_CACHE_TTL", "5s")
	v.SetDefault("AUTH_POLICY_ENGINE", "static")
	v.SetDefault("AUTH_POLICY_FILE", "")
	v.SetDefault("AUTH_STORE_TIMEOUT", "3s")
	v.SetDefault("AUTH_DATABASE_DRIVER", "sqlite")
	v.SetDefault("AUTH_DATABASE_FILE", "auth.db")
	v.SetDefault("AUTH_DATABASE_URL", "")
	v.SetDefault("AUTH_REDIS_URL", "")
	v.SetDefault("AUTH_PROVIDER_SALT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("AUTH_BOOTSTRAP_EMAIL", "")
	v.SetDefault("AUTH_BOOTSTRAP_PASSWORD", "")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	access, err := cryptox.ResolveSecret("AUTH_ACCESS_SECRET", cfg.AccessSecret, cfg.AccessSecretFile)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	refresh, err := cryptox.ResolveSecret("AUTH_REFRESH_SECRET", cfg.RefreshSecret, cfg.RefreshSecretFile)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.AccessSecret, cfg.RefreshSecret = string(access), string(refresh)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot safely start without.
func (c Config) Validate() error {
	if len(c.AccessSecret) < cryptox.MinSecretLength {
		return errors.New("config: AUTH_ACCESS_SECRET must be at least 32 bytes")
	}
	if len(c.RefreshSecret) < cryptox.MinSecretLength {
		return errors.New("config: AUTH_REFRESH_SECRET must be at least 32 bytes")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return errors.New("config: AUTH_REFRESH_TTL must be longer than AUTH_ACCESS_TTL")
	}
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > 31 {
		return fmt.Errorf("config: AUTH_BCRYPT_COST must be between %d and 31", MinBcryptCost)
	}
	if c.TrustedDeviceTTL < 0 {
		return errors.New("config: AUTH_TRUSTED_DEVICE_TTL must not be negative")
	}
	if c.MaxSessions < 1 {
		return errors.New("config: AUTH_MAX_SESSIONS must be at least 1")
	}

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			return errors.New("config: AUTH_DATABASE_FILE must be set for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: AUTH_DATABASE_URL must be set for the postgres driver")
		}
	default:
		return errors.New("config: AUTH_DATABASE_DRIVER must be sqlite or postgres")
	}

	switch c.PolicyEngine {
	case "static", "rego":
	default:
		return errors.New("config: AUTH_POLICY_ENGINE must be static or rego")
	}

	if (c.BootstrapEmail == "") != (c.BootstrapPass == "") {
		return errors.New("config: AUTH_BOOTSTRAP_EMAIL and AUTH_BOOTSTRAP_PASSWORD must be set together")
	}
	return nil
}
