package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env   string `env:"APP_ENV" envDefault:"dev"`
	Port  int    `env:"PORT" envDefault:"8080"`
	DBURL string

	DB       DBConfig
	JWT      JWTConfig
	Provider ProviderConfig
	Mail     MailConfig
	Redis    RedisConfig

	BcryptCost   int    `env:"BCRYPT_COST" envDefault:"10"`
	PendingStore string `env:"PENDING_STORE" envDefault:"postgres"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"smartq"`
	Password string `env:"DB_PASSWORD" envDefault:"smartq"`
	Name     string `env:"DB_NAME" envDefault:"smartq"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

type JWTConfig struct {
	Secret     string `env:"JWT_SECRET" envDefault:"dev-secret-smartq"`
	TTLSeconds int64  `env:"JWT_TTL_SECONDS" envDefault:"3600"`
}

// ProviderConfig points at the hosted identity provider. AnonKey is used for
// end-user calls, ServiceKey for administrative ones.
type ProviderConfig struct {
	URL        string        `env:"IDP_URL"`
	AnonKey    string        `env:"IDP_ANON_KEY"`
	ServiceKey string        `env:"IDP_SERVICE_KEY"`
	Timeout    time.Duration `env:"IDP_TIMEOUT" envDefault:"30s"`
}

type MailConfig struct {
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	From           string        `env:"MAIL_FROM" envDefault:"no-reply@smartq.local"`
	FromName       string        `env:"MAIL_FROM_NAME" envDefault:"SmartQ"`
	Timeout        time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

const defaultProviderTimeout = 30 * time.Second

// Load reads an optional .env file and then the process environment.
// A malformed variable is an error; there is no fallback to defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config

	err := env.Parse(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	return cfg, nil
}

// Defaults returns the configuration used when the environment is empty.
func Defaults() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = defaultProviderTimeout
	}
	if c.Mail.Timeout <= 0 {
		c.Mail.Timeout = 10 * time.Second
	}
	if c.JWT.TTLSeconds <= 0 {
		c.JWT.TTLSeconds = 3600
	}

	c.Provider.URL = strings.TrimRight(c.Provider.URL, "/")
	c.PendingStore = strings.ToLower(strings.TrimSpace(c.PendingStore))
	c.DBURL = c.DB.URL()
}

func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func (c Config) ProviderEnabled() bool {
	return c.Provider.URL != ""
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
