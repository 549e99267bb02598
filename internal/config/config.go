package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	HTTPTimeout     time.Duration `mapstructure:"HTTP_TIMEOUT"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	Timezone        string        `mapstructure:"TIMEZONE"`
	SessionStore    string        `mapstructure:"SESSION_STORE"`
	SessionDir      string        `mapstructure:"SESSION_DIR"`
	SessionKey      string        `mapstructure:"SESSION_KEY"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	TokenSigningKey string        `mapstructure:"TOKEN_SIGNING_KEY"`

	Endpoints Endpoints `mapstructure:",squash"`
}

// Endpoints holds one base URL per backend collection.
type Endpoints struct {
	Patients       string `mapstructure:"API_BASE_PACIENTES"`
	Companions     string `mapstructure:"API_BASE_ACOMPANHANTES"`
	Consultations  string `mapstructure:"API_BASE_CONSULTAS"`
	HealthData     string `mapstructure:"API_BASE_DADOS_SAUDE"`
	Prediction     string `mapstructure:"API_DADOS_SAUDE_PREDICAO"`
	Contacts       string `mapstructure:"API_BASE_CONTATOS"`
	Ratings        string `mapstructure:"API_BASE_AVALIACOES"`
	ReminderNotify string `mapstructure:"API_ENVIAR_LEMBRETES"`
	Content        string `mapstructure:"API_BASE_CONTEUDOS"`
	Locator        string `mapstructure:"API_UBS_LOCALIZADOR"`
}

var keys = []string{
	"PORT", "ENV", "HTTP_TIMEOUT", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"TIMEZONE", "SESSION_STORE", "SESSION_DIR", "SESSION_KEY", "REDIS_URL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "TOKEN_SIGNING_KEY",
	"API_BASE_PACIENTES", "API_BASE_ACOMPANHANTES", "API_BASE_CONSULTAS",
	"API_BASE_DADOS_SAUDE", "API_DADOS_SAUDE_PREDICAO", "API_BASE_CONTATOS",
	"API_BASE_AVALIACOES", "API_ENVIAR_LEMBRETES", "API_BASE_CONTEUDOS",
	"API_UBS_LOCALIZADOR",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_DIR", "~/.consultacerta")
	v.SetDefault("SESSION_KEY", "paciente")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("API_UBS_LOCALIZADOR", "https://buscar-ubs-perto-api.onrender.com")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	cfg.Endpoints.trim()

	if cfg.IsDev() {
		log.Println("WARNING: portal is running in DEVELOPMENT mode (ENV=development).")
		if cfg.TokenSigningKey == "" {
			log.Println("WARNING: TOKEN_SIGNING_KEY is empty; session tokens are decoded without signature checks.")
		}
	}

	return cfg, nil
}

func (e *Endpoints) trim() {
	for _, p := range []*string{
		&e.Patients, &e.Companions, &e.Consultations, &e.HealthData, &e.Prediction,
		&e.Contacts, &e.Ratings, &e.ReminderNotify, &e.Content, &e.Locator,
	} {
		*p = strings.TrimRight(strings.TrimSpace(*p), "/")
	}
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location resolves the configured timezone used for appointment dates.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate checks that the configuration can drive the portal: the patients
// collection is mandatory and the session store backend must have what it
// needs to connect.
func (c *Config) Validate() error {
	if c.Endpoints.Patients == "" {
		return fmt.Errorf("API_BASE_PACIENTES is required")
	}
	switch c.SessionStore {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", StoreRedis)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE is %q", StorePostgres)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of file, redis, postgres, memory, got %q", c.SessionStore)
	}
	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}
