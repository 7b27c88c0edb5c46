package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"POSTGRES"`
	JWT      JWTConfig      `envconfig:"JWT"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Login    LoginConfig    `envconfig:"LOGIN"`
	Tasks    TasksConfig    `envconfig:"TASKS"`
	Accounts AccountsConfig `envconfig:"ACCOUNTS"`
}

type ServerConfig struct {
	Host           string        `envconfig:"HOST" default:"localhost"`
	Port           int           `envconfig:"PORT" default:"8080"`
	PublicURL      string        `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"20"`
}

type DatabaseConfig struct {
	Host         string `envconfig:"HOST" default:"localhost"`
	Port         int    `envconfig:"PORT" default:"5432"`
	User         string `envconfig:"USER" default:"postgres"`
	Password     string `envconfig:"PASSWORD"`
	Name         string `envconfig:"DB" default:"roles_permissions"`
	SSLMode      string `envconfig:"SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns int    `envconfig:"MAX_IDLE_CONNS" default:"10"`
	// LogSQL turns on gorm statement logging.
	LogSQL bool `envconfig:"LOG_SQL" default:"false"`
}

type JWTConfig struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	TTL    time.Duration `envconfig:"TTL" default:"24h"`
	Issuer string        `envconfig:"ISSUER" default:"roles-permissions"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"false"`
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"6379"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// PublicHost is the host[:port] clients use to reach the API.
func (s ServerConfig) PublicHost() string {
	if u, err := url.Parse(s.PublicURL); err == nil && u.Host != "" {
		return u.Host
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoginConfig throttles failed and successful login attempts per email.
// It is only enforced when Redis is enabled.
type LoginConfig struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type TasksConfig struct {
	Enabled          bool   `envconfig:"ENABLED" default:"false"`
	Concurrency      int    `envconfig:"CONCURRENCY" default:"5"`
	SessionPurgeCron string `envconfig:"SESSION_PURGE_CRON" default:"@hourly"`
}

type AccountsConfig struct {
	// DefaultRole is assigned to every newly created account.
	DefaultRole string `envconfig:"DEFAULT_ROLE" default:"viewer"`
	BcryptCost  int    `envconfig:"BCRYPT_COST" default:"10"`
	SeedOnStart bool   `envconfig:"SEED_ON_START" default:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Tasks.Enabled && !c.Redis.Enabled {
		return errors.New("TASKS_ENABLED requires REDIS_ENABLED")
	}
	if c.Tasks.Enabled {
		if _, err := cron.ParseStandard(c.Tasks.SessionPurgeCron); err != nil {
			return fmt.Errorf("invalid TASKS_SESSION_PURGE_CRON %q: %w", c.Tasks.SessionPurgeCron, err)
		}
	}
	if c.Redis.Enabled && (c.Login.MaxAttempts <= 0 || c.Login.Window <= 0) {
		return errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive")
	}
	return nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host,
		d.User,
		d.Password,
		d.Name,
		d.Port,
		d.SSLMode,
	)
}
