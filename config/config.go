package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	JWT       JWTConfig       `toml:"jwt"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Log       LogConfig       `toml:"log"`
	Email     EmailConfig     `toml:"email"`
	Firebase  FirebaseConfig  `toml:"firebase"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Admin     AdminConfig     `toml:"admin"`
}

type ServerConfig struct {
	Port         string        `toml:"port"`
	Env          string        `toml:"env"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // mysql | postgres | sqlite
	DSN             string        `toml:"dsn"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type JWTConfig struct {
	AccessSecret string        `toml:"access_secret"`
	AccessExpiry time.Duration `toml:"access_expiry"`
	Issuer       string        `toml:"issuer"`
}

// LedgerConfig holds time-bank rules that are policy rather than invariant.
type LedgerConfig struct {
	InitialGrant   int     `toml:"initial_grant"`
	BrowseRadiusKm float64 `toml:"browse_radius_km"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type EmailConfig struct {
	ResendAPIKey string `toml:"resend_api_key"`
	From         string `toml:"from"`
}

type FirebaseConfig struct {
	ServiceAccountPath string `toml:"service_account_path"`
}

type RateLimitConfig struct {
	Requests int           `toml:"requests"`
	Window   time.Duration `toml:"window"`
}

// AdminConfig seeds the first administrator on startup when both fields are set.
type AdminConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// Default returns the built-in configuration used before any file or env override.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Env:          "development",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "hive:hive@tcp(localhost:3306)/hive?charset=utf8mb4&parseTime=True&loc=Local",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: "change-me-in-production",
			AccessExpiry: 24 * time.Hour,
			Issuer:       "hive",
		},
		Ledger: LedgerConfig{
			InitialGrant:   5,
			BrowseRadiusKm: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Email: EmailConfig{
			From: "The Hive <noreply@thehive.local>",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   60 * time.Second,
		},
	}
}

// Load reads .env (if present), then the TOML file named by HIVE_CONFIG (if set),
// then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	if path := os.Getenv("HIVE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("HIVE_PORT", cfg.Server.Port)
	cfg.Server.Env = getEnv("HIVE_ENV", cfg.Server.Env)
	cfg.Server.ReadTimeout = getEnvDuration("HIVE_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("HIVE_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)
	cfg.Database.MaxIdleConns = getEnvInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxOpenConns = getEnvInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)

	cfg.JWT.AccessSecret = getEnv("JWT_ACCESS_SECRET", cfg.JWT.AccessSecret)
	cfg.JWT.AccessExpiry = getEnvDuration("JWT_ACCESS_EXPIRY", cfg.JWT.AccessExpiry)
	cfg.JWT.Issuer = getEnv("JWT_ISSUER", cfg.JWT.Issuer)

	cfg.Ledger.InitialGrant = getEnvInt("HIVE_INITIAL_GRANT", cfg.Ledger.InitialGrant)
	cfg.Ledger.BrowseRadiusKm = getEnvFloat("HIVE_BROWSE_RADIUS_KM", cfg.Ledger.BrowseRadiusKm)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvBool("LOG_PRETTY", cfg.Log.Pretty)

	cfg.Email.ResendAPIKey = getEnv("RESEND_API_KEY", cfg.Email.ResendAPIKey)
	cfg.Email.From = getEnv("FROM_EMAIL", cfg.Email.From)

	cfg.Firebase.ServiceAccountPath = getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", cfg.Firebase.ServiceAccountPath)

	cfg.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Admin.Email = getEnv("ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", cfg.Admin.Password)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
