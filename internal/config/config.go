package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the relay server configuration, read from the environment.
type Config struct {
	AppEnv          string        `env:"APP_ENV,default=dev"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	Port            int           `env:"PORT,default=3001"`
	StaticDir       string        `env:"STATIC_DIR,default=./dist"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	CORSAllowOrigin string        `env:"CORS_ALLOW_ORIGIN,default=*"`
	Retention       time.Duration `env:"MESSAGE_RETENTION,default=10m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	SendBuffer      int           `env:"SEND_BUFFER,default=256"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitRefill time.Duration `env:"RATE_LIMIT_REFILL,default=1s"`
	RedisURL        string        `env:"REDIS_URL"`
}

// Load reads .env.local, then .env, then the process environment. Variables
// already set in the environment win over both files.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalidConfig, c.Port)
	case c.Retention <= 0:
		return fmt.Errorf("%w: MESSAGE_RETENTION must be positive", ErrInvalidConfig)
	case c.SweepInterval <= 0 || c.SweepInterval >= c.Retention:
		return fmt.Errorf("%w: SWEEP_INTERVAL must be positive and shorter than MESSAGE_RETENTION", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: MAX_MESSAGE_SIZE must be positive", ErrInvalidConfig)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: SEND_BUFFER must be positive", ErrInvalidConfig)
	case c.RateLimitBurst < 0:
		return fmt.Errorf("%w: RATE_LIMIT_BURST must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProd reports whether the server runs in production mode.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.AppEnv, "prod") || strings.EqualFold(c.AppEnv, "production")
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
