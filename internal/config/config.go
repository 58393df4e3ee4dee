package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. FF_SERVER_ADDRESS.
const EnvPrefix = "FF"

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	SessionHours int    `mapstructure:"session_hours"`
	CookieName   string `mapstructure:"cookie_name"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
	BcryptCost   int    `mapstructure:"bcrypt_cost"`
}

type BudgetConfig struct {
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	CatchUpMonths    int           `mapstructure:"catch_up_months"`
	AlertThreshold   float64       `mapstructure:"alert_threshold"`
}

type AIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	DigestTime string `mapstructure:"digest_time"`
}

type SeedConfig struct {
	AdminPassword string `mapstructure:"admin_password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config keeps runtime settings for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Budget   BudgetConfig   `mapstructure:"budget"`
	AI       AIConfig       `mapstructure:"ai"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Log      LogConfig      `mapstructure:"log"`
}

// Load reads configuration from an optional YAML file, a .env file and FF_*
// environment variables, in increasing order of precedence. An empty path
// looks for config.yaml in the working directory and tolerates its absence.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":3001")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.path", "data/family_finance.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_hours", 24)
	v.SetDefault("auth.cookie_name", "ff_session")
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("budget.snapshot_interval", 30*time.Minute)
	v.SetDefault("budget.catch_up_months", 12)
	v.SetDefault("budget.alert_threshold", 90.0)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 20*time.Second)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "family-finance")
	v.SetDefault("amqp.queue", "budget-alerts")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.digest_time", "08:00")
	v.SetDefault("seed.admin_password", "admin")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks the loaded values and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode))
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Server.Mode == "release" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters in release mode"))
	}
	if c.Auth.SessionHours <= 0 {
		errs = append(errs, errors.New("auth.session_hours must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Budget.SnapshotInterval < time.Second {
		errs = append(errs, errors.New("budget.snapshot_interval must be at least 1s"))
	}
	if c.Budget.CatchUpMonths < 1 {
		errs = append(errs, errors.New("budget.catch_up_months must be at least 1"))
	}
	if c.Budget.AlertThreshold <= 0 || c.Budget.AlertThreshold > 100 {
		errs = append(errs, errors.New("budget.alert_threshold must be in (0, 100]"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.AMQP.URL != "" && (c.AMQP.Exchange == "" || c.AMQP.Queue == "") {
		errs = append(errs, errors.New("amqp.exchange and amqp.queue are required when amqp.url is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SessionTTL is the lifetime of a login session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionHours) * time.Hour
}

// JWTSecret returns the configured secret, or a development fallback outside release mode.
func (c *Config) JWTSecret() string {
	if c.Auth.JWTSecret != "" {
		return c.Auth.JWTSecret
	}
	return "family-finance-dev-secret"
}
