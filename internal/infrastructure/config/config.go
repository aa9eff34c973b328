package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	LocalState LocalStateConfig `mapstructure:"local_state"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Security   SecurityConfig   `mapstructure:"security"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds the dashboard API server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RemoteConfig holds the remote store connection settings
type RemoteConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LocalStateConfig holds the local session cache settings
type LocalStateConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds the polling and retention policy
type SyncConfig struct {
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	PruneInterval     time.Duration `mapstructure:"prune_interval"`
	RetentionMonths   int           `mapstructure:"retention_months"`
	PruneDelay        time.Duration `mapstructure:"prune_delay"`
	PresenceStale     time.Duration `mapstructure:"presence_stale"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
	RateLimitRequests  int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow    time.Duration `mapstructure:"rate_limit_window"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	// Configure viper
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "TeamTrack")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Remote store defaults
	viper.SetDefault("remote.base_url", "")
	viper.SetDefault("remote.service_key", "")
	viper.SetDefault("remote.timeout", "15s")

	// Local state defaults
	viper.SetDefault("local_state.path", "teamtrack.db")

	// Sync defaults
	viper.SetDefault("sync.refresh_interval", "30s")
	viper.SetDefault("sync.heartbeat_interval", "60s")
	viper.SetDefault("sync.prune_interval", "1h")
	viper.SetDefault("sync.retention_months", 6)
	viper.SetDefault("sync.prune_delay", "200ms")
	viper.SetDefault("sync.presence_stale", "3m")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output", "stdout")

	// Security defaults
	viper.SetDefault("security.cors_allowed_origins", "*")
	viper.SetDefault("security.rate_limit_requests", 100)
	viper.SetDefault("security.rate_limit_window", "1m")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.name", "APP_NAME")
	viper.BindEnv("app.version", "APP_VERSION")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("app.debug", "APP_DEBUG")

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	viper.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")

	// Remote store
	viper.BindEnv("remote.base_url", "REMOTE_BASE_URL")
	viper.BindEnv("remote.service_key", "REMOTE_SERVICE_KEY")
	viper.BindEnv("remote.timeout", "REMOTE_TIMEOUT")

	// Local state
	viper.BindEnv("local_state.path", "LOCAL_STATE_PATH")

	// Sync
	viper.BindEnv("sync.refresh_interval", "SYNC_REFRESH_INTERVAL")
	viper.BindEnv("sync.heartbeat_interval", "SYNC_HEARTBEAT_INTERVAL")
	viper.BindEnv("sync.prune_interval", "SYNC_PRUNE_INTERVAL")
	viper.BindEnv("sync.retention_months", "SYNC_RETENTION_MONTHS")
	viper.BindEnv("sync.prune_delay", "SYNC_PRUNE_DELAY")
	viper.BindEnv("sync.presence_stale", "SYNC_PRESENCE_STALE")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.format", "LOG_FORMAT")
	viper.BindEnv("logger.output", "LOG_OUTPUT")

	// Security
	viper.BindEnv("security.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	viper.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")

	// Metrics
	viper.BindEnv("metrics.enabled", "ENABLE_METRICS")
}

func validateConfig(cfg *Config) error {
	if cfg.Remote.BaseURL == "" {
		return fmt.Errorf("remote base URL is required")
	}

	if cfg.Remote.ServiceKey == "" {
		return fmt.Errorf("remote service key is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Sync.RetentionMonths <= 0 {
		return fmt.Errorf("retention months must be positive")
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
