package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Permits       PermitsConfig       `mapstructure:"permits"`
	Inspections   InspectionsConfig   `mapstructure:"inspections"`
	Issues        IssuesConfig        `mapstructure:"issues"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logger        LoggerConfig        `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// AuthConfig holds bearer-token verification configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// PermitsConfig holds permit lifecycle configuration
type PermitsConfig struct {
	ExpirationDays int `mapstructure:"expiration_days"`
}

// InspectionsConfig holds scheduling configuration
type InspectionsConfig struct {
	DefaultBufferDays  int           `mapstructure:"default_buffer_days"`
	DefaultSlotMinutes int           `mapstructure:"default_slot_minutes"`
	DefaultMaxPerDay   int           `mapstructure:"default_max_per_day"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
}

// IssuesConfig holds issue-card configuration
type IssuesConfig struct {
	QROutputDir  string `mapstructure:"qr_output_dir"`
	QRBaseURL    string `mapstructure:"qr_base_url"`
	MaxBatchSize int    `mapstructure:"max_batch_size"`
}

// NotificationsConfig holds notification dispatch configuration
type NotificationsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/permits.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("permits.expiration_days", 180)

	viper.SetDefault("inspections.default_buffer_days", 1)
	viper.SetDefault("inspections.default_slot_minutes", 60)
	viper.SetDefault("inspections.default_max_per_day", 8)
	viper.SetDefault("inspections.sweep_interval", time.Minute)

	viper.SetDefault("issues.qr_output_dir", "generated_qr")
	viper.SetDefault("issues.qr_base_url", "https://permits.example.gov/i")
	viper.SetDefault("issues.max_batch_size", 500)

	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.timeout", 10*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "console")
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Permits.ExpirationDays <= 0 {
		return fmt.Errorf("permits.expiration_days must be positive")
	}
	if c.Inspections.DefaultBufferDays < 0 {
		return fmt.Errorf("inspections.default_buffer_days must not be negative")
	}
	if c.Inspections.DefaultSlotMinutes <= 0 {
		return fmt.Errorf("inspections.default_slot_minutes must be positive")
	}
	if c.Issues.MaxBatchSize <= 0 {
		return fmt.Errorf("issues.max_batch_size must be positive")
	}
	return nil
}
