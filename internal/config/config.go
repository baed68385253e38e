package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV  string
		Name string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
		SQLLevel  string
	}

	DB struct {
		Driver          string
		DSN             string
		Host            string
		Port            string
		User            string
		Password        string
		Name            string
		SSLMode         string
		MaxIdleConns    int
		MaxOpenConns    int
		ConnMaxLifetime time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host            string
		Port            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		CORSOrigins     []string
		RateLimit       int
		RateWindow      time.Duration
	}

	GRPC struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret string
		Issuer    string
	}

	Push struct {
		Provider        string
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		VAPIDSubject    string
		TTL             int
		Timeout         time.Duration
		FCMCredentials  string
	}

	Notify struct {
		Language string
	}

	Crush struct {
		PairLockTTL  time.Duration
		PairLockWait time.Duration
	}

	Otel struct {
		Enabled     bool
		Exporter    string
		Endpoint    string
		SampleRatio float64
	}
}

func New() *Config {
	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "development")
	cfg.App.Name = getEnvDefault("APP_NAME", "wholikeme")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))
	cfg.Log.SQLLevel = getEnvDefault("LOG_SQL_LEVEL", "warn")

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DATABASE_URL")
	cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.DB.User = getEnvDefault("DB_USER", "postgres")
	cfg.DB.Password = getEnvDefault("DB_PASSWORD", "postgres")
	cfg.DB.Name = getEnvDefault("DB_NAME", "wholikeme")
	cfg.DB.SSLMode = getEnvDefault("DB_SSLMODE", "disable")
	cfg.DB.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	cfg.DB.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 50)
	cfg.DB.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	switch cfg.DB.Driver {
	case "mysql":
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	default:
		cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.HTTP.CORSOrigins = getEnvList("HTTP_CORS_ORIGINS", []string{"http://localhost:3000"})
	cfg.HTTP.RateLimit = getEnvInt("HTTP_RATE_LIMIT", 120)
	cfg.HTTP.RateWindow = getEnvDuration("HTTP_RATE_WINDOW", time.Minute)

	// gRPC (health only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	cfg.Auth.Issuer = getEnvDefault("AUTH_JWT_ISSUER", "wholikeme")

	// Push
	cfg.Push.Provider = strings.ToLower(getEnvDefault("PUSH_PROVIDER", "webpush"))
	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.VAPIDSubject = getEnvDefault("VAPID_SUBJECT", "admin@wholikeme.app")
	cfg.Push.TTL = getEnvInt("PUSH_TTL", 60*60*24)
	cfg.Push.Timeout = getEnvDuration("PUSH_TIMEOUT", 5*time.Second)
	cfg.Push.FCMCredentials = os.Getenv("FIREBASE_CREDENTIALS_FILE")

	// Notifications
	cfg.Notify.Language = strings.ToLower(getEnvDefault("NOTIFY_LANGUAGE", "en"))

	// Crush workflow
	cfg.Crush.PairLockTTL = getEnvDuration("CRUSH_PAIR_LOCK_TTL", 5*time.Second)
	cfg.Crush.PairLockWait = getEnvDuration("CRUSH_PAIR_LOCK_WAIT", 2*time.Second)

	// Tracing
	cfg.Otel.Enabled = isTruthy(os.Getenv("OTEL_ENABLED"))
	cfg.Otel.Exporter = strings.ToLower(getEnvDefault("OTEL_EXPORTER", "otlp"))
	cfg.Otel.Endpoint = getEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	cfg.Otel.SampleRatio = getEnvFloat("OTEL_SAMPLER_RATIO", 0.1)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("5s", "1m") or plain seconds.
func getEnvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func getEnvList(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
