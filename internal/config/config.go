package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server     Server         `mapstructure:"server"`
	Database   Database       `mapstructure:"database"`
	Redis      Redis          `mapstructure:"redis"`
	Email      Email          `mapstructure:"email"`
	SMS        SMS            `mapstructure:"sms"`
	Retry      retry.Strategy `mapstructure:"retry"`
	Dispatcher Dispatcher     `mapstructure:"dispatcher"`
	Notify     Notify         `mapstructure:"notify"`
	Workers    struct {
		Count int `mapstructure:"count"` // number of in-flight sends per cycle
	} `mapstructure:"workers"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Redis holds Redis connection parameters for the status cache.
type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

// Email selects and configures the outbound email transport.
// Provider is "sendgrid" for the HTTP API or "smtp" for plain SMTP
// (local development).
type Email struct {
	Provider string `mapstructure:"provider"`

	SendGrid SendGrid `mapstructure:"sendgrid"`
	SMTP     SMTP     `mapstructure:"smtp"`

	FromEmail string `mapstructure:"from_email"`
	FromName  string `mapstructure:"from_name"`
}

// SendGrid holds transactional email API configuration.
type SendGrid struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // override for tests; empty means the public API
}

// SMTP holds SMTP configuration for sending emails.
type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SMS holds the SMS gateway configuration.
type SMS struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
}

// Dispatcher holds the polling-loop configuration.
type Dispatcher struct {
	Interval     time.Duration `mapstructure:"interval"`      // poll interval between cycles
	BatchSize    int           `mapstructure:"batch_size"`    // max records claimed per cycle
	SendTimeout  time.Duration `mapstructure:"send_timeout"`  // per-record processing budget
	ClaimTimeout time.Duration `mapstructure:"claim_timeout"` // processing records older than this are released
}

// Notify holds pipeline-level settings.
type Notify struct {
	DefaultLocale string `mapstructure:"default_locale"` // fallback locale for rendering
	BaseURL       string `mapstructure:"base_url"`       // public URL used in rendered links
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",

		"redis.address":  "REDIS_ADDRESS",
		"redis.password": "REDIS_PASSWORD",
		"redis.database": "REDIS_DATABASE",

		"email.sendgrid.api_key": "SENDGRID_API_KEY",
		"email.smtp.host":        "SMTP_HOST",
		"email.smtp.port":        "SMTP_PORT",
		"email.smtp.username":    "SMTP_USER",
		"email.smtp.password":    "SMTP_PASS",
		"email.from_email":       "MAIL_FROM",

		"sms.base_url": "SMS_GATEWAY_URL",
		"sms.api_key":  "SMS_API_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// Must loads and validates the configuration from file and environment variables.
//
// It panics if configuration cannot be read or unmarshalled.
func Must() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
