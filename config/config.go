package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Env          string        `mapstructure:"env"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer        string        `mapstructure:"issuer"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
}

// Enabled reports whether all Cloudinary credentials are present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// StorageConfig controls media uploads. LocalDir/PublicURL are used when Cloudinary is not configured.
type StorageConfig struct {
	LocalDir      string `mapstructure:"local_dir"`
	PublicURL     string `mapstructure:"public_url"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb"`
	MaxFiles      int    `mapstructure:"max_files"`
	UploadWorkers int    `mapstructure:"upload_workers"`
}

// PaymentConfig carries the gateway credentials. It is handed to the order manager and the
// webhook reconciler at construction time.
type PaymentConfig struct {
	Provider      string        `mapstructure:"provider"` // razorpay | stub
	KeyID         string        `mapstructure:"key_id"`
	KeySecret     string        `mapstructure:"key_secret"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	BaseURL       string        `mapstructure:"base_url"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// GatewayConfigured reports whether orders can be created and signatures verified.
func (p PaymentConfig) GatewayConfigured() bool {
	if p.Provider == "stub" {
		return p.KeySecret != ""
	}
	return p.KeyID != "" && p.KeySecret != ""
}

type ReconcileConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Output     string `mapstructure:"output"` // stdout | file
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 120)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "crowdfund:crowdfund@tcp(localhost:3306)/crowdfund?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.refresh_secret", "change-me-refresh")
	v.SetDefault("jwt.access_expiry", 60*time.Minute)
	v.SetDefault("jwt.refresh_expiry", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "crowdfund")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "crowdfund")

	v.SetDefault("storage.local_dir", "media")
	v.SetDefault("storage.public_url", "/media")
	v.SetDefault("storage.max_file_size_mb", 25)
	v.SetDefault("storage.max_files", 10)
	v.SetDefault("storage.upload_workers", 4)

	v.SetDefault("payment.provider", "razorpay")
	v.SetDefault("payment.key_id", "")
	v.SetDefault("payment.key_secret", "")
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.timeout", 10*time.Second)

	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.interval", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/crowdfund.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load reads config.yaml from the working directory or ./config (optional) and applies
// CROWDFUND_* environment overrides, e.g. CROWDFUND_PAYMENT_KEY_SECRET.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path; an empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("crowdfund")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
