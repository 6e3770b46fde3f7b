package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Driver names accepted by BACKEND_DRIVER, TABLES_DRIVER, SESSION_STORE and MAIL_DRIVER.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSendgrid = "sendgrid"
	DriverLog      = "log"
)

type Config struct {
	Env     string
	Port    int
	AppName string

	Backend  BackendConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	CORS     CORSConfig
	Log      LogConfig
	Mail     MailConfig
	UI       UIConfig
}

// BackendConfig points the portal at the hosted auth and table backend.
type BackendConfig struct {
	URL          string
	AnonKey      string
	ServiceKey   string
	JWTSecret    string
	Driver       string
	TablesDriver string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls the server-side session cookie and the bulk action lock.
type SessionConfig struct {
	Store           string
	CookieName      string
	TTL             time.Duration
	CookieSecure    bool
	BulkLockTTL     time.Duration
	SignInPerMinute int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig selects how enrollment e-mails are delivered.
type MailConfig struct {
	Driver     string
	APIKey     string
	From       string
	Workers    int
	MaxRetries int
}

// UIConfig tunes presentation details.
type UIConfig struct {
	ChartDateLayout string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.AppName = v.GetString("APP_NAME")

	cfg.Backend = BackendConfig{
		URL:          strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		AnonKey:      v.GetString("BACKEND_ANON_KEY"),
		ServiceKey:   v.GetString("BACKEND_SERVICE_KEY"),
		JWTSecret:    v.GetString("BACKEND_JWT_SECRET"),
		Driver:       strings.ToLower(v.GetString("BACKEND_DRIVER")),
		TablesDriver: strings.ToLower(v.GetString("TABLES_DRIVER")),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Store:           strings.ToLower(v.GetString("SESSION_STORE")),
		CookieName:      v.GetString("SESSION_COOKIE_NAME"),
		TTL:             parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		CookieSecure:    v.GetBool("COOKIE_SECURE"),
		BulkLockTTL:     parseDuration(v.GetString("BULK_LOCK_TTL"), 30*time.Second),
		SignInPerMinute: v.GetInt("SIGNIN_RATE_PER_MINUTE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		Driver:     strings.ToLower(v.GetString("MAIL_DRIVER")),
		APIKey:     v.GetString("SENDGRID_API_KEY"),
		From:       v.GetString("MAIL_FROM"),
		Workers:    v.GetInt("MAIL_WORKERS"),
		MaxRetries: v.GetInt("MAIL_RETRIES"),
	}

	cfg.UI = UIConfig{ChartDateLayout: v.GetString("CHART_DATE_LAYOUT")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_NAME", "SMA Attendance")

	v.SetDefault("BACKEND_URL", "http://localhost:54321")
	v.SetDefault("BACKEND_ANON_KEY", "")
	v.SetDefault("BACKEND_SERVICE_KEY", "")
	v.SetDefault("BACKEND_JWT_SECRET", "")
	v.SetDefault("BACKEND_DRIVER", DriverMemory)
	v.SetDefault("TABLES_DRIVER", DriverMemory)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_STORE", DriverMemory)
	v.SetDefault("SESSION_COOKIE_NAME", "sma_session")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BULK_LOCK_TTL", "30s")
	v.SetDefault("SIGNIN_RATE_PER_MINUTE", 20)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAIL_DRIVER", DriverLog)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM", "no-reply@sma.local")
	v.SetDefault("MAIL_WORKERS", 1)
	v.SetDefault("MAIL_RETRIES", 0)

	v.SetDefault("CHART_DATE_LAYOUT", "1/2/2006")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
