package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Carrier  CarrierConfig  `mapstructure:"carrier"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GatewayConfig holds hosted-checkout payment gateway settings.
type GatewayConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	MerchantID  string `mapstructure:"merchant_id"`
	APIPassword string `mapstructure:"api_password"`
	Currency    string `mapstructure:"currency"` // default session currency
}

// CarrierConfig holds shipping-carrier API settings.
type CarrierConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	CustomerCode string `mapstructure:"customer_code"` // default carrier account
	Environment  string `mapstructure:"environment"`   // production, uat
}

// IsProduction reports whether the carrier endpoint is a production one.
// Production endpoints never relax TLS verification.
func (c CarrierConfig) IsProduction() bool {
	return c.Environment == "production"
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"` // shared x-notification-secret value
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CHK.
// Nested keys use underscore: CHK_DATABASE_HOST, CHK_WEBHOOK_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "checkout_sandbox")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.merchant_id", "")
	v.SetDefault("gateway.api_password", "")
	v.SetDefault("gateway.currency", "LKR")
	v.SetDefault("carrier.base_url", "")
	v.SetDefault("carrier.username", "")
	v.SetDefault("carrier.password", "")
	v.SetDefault("carrier.customer_code", "")
	v.SetDefault("carrier.environment", "uat")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CHK_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CHK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on missing deployment configuration that cannot be
// recovered at request time.
func (c *Config) Validate() error {
	var missing []string
	if c.Gateway.BaseURL == "" {
		missing = append(missing, "gateway.base_url")
	}
	if c.Gateway.MerchantID == "" {
		missing = append(missing, "gateway.merchant_id")
	}
	if c.Gateway.APIPassword == "" {
		missing = append(missing, "gateway.api_password")
	}
	if c.Carrier.BaseURL == "" {
		missing = append(missing, "carrier.base_url")
	}
	if c.Carrier.Username == "" {
		missing = append(missing, "carrier.username")
	}
	if c.Carrier.Password == "" {
		missing = append(missing, "carrier.password")
	}
	if c.Carrier.CustomerCode == "" {
		missing = append(missing, "carrier.customer_code")
	}
	if c.Webhook.Secret == "" {
		missing = append(missing, "webhook.secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
