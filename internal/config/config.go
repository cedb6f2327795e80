package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Events    EventsConfig    `mapstructure:"events"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	ConnectAttempts uint   `mapstructure:"connect_attempts" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	// JWTSecret verifies bearer tokens issued by the identity service.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// InternalToken authenticates item lifecycle webhooks from the content service.
	InternalToken string `mapstructure:"internal_token" validate:"required,min=16"`
	// TokenLifetimeMinutes bounds tokens minted by the dev token command.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// BillingConfig describes how subscription tiers are resolved.
// With an empty BaseURL every user is assigned DefaultTier.
type BillingConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	DefaultTier    string `mapstructure:"default_tier" validate:"oneof=free basic premium pro"`
}

// EventsConfig configures the optional Redis subscription for item lifecycle events.
type EventsConfig struct {
	RedisAddr string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	Channel   string `mapstructure:"channel" validate:"required"`
}

// SchedulerConfig overrides the interval tables per tier, in days.
// An empty map keeps the built-in tables.
type SchedulerConfig struct {
	Intervals map[string][]int `mapstructure:"intervals"`
}
