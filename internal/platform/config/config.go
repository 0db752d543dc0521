// Pacote config centraliza o carregamento das variáveis de ambiente usadas pelos binários.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxRunSteps = 5

// Config agrega todos os parâmetros necessários para API, worker e CLI.
type Config struct {
	HTTPAddress string
	LogLevel    slog.Level

	DBDriver         string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PublishQueueKey   string
	ContadorKeyPrefix string
	LockKeyPrefix     string

	RateLimitEnabled       bool
	RateLimitMaxActions    int
	RateLimitWindowSeconds int
	RateLimitKeyPrefix     string

	StrictTransitions bool
	StepTimeout       time.Duration
	LockTTL           time.Duration

	AuthJWTSecret string

	AutoMigrate bool

	WorkerMetricsAddress string
}

func Load() (Config, error) {
	// Defaults priorizam execução local; variáveis permitem sobrescrever em Docker/K8s.
	cfg := Config{
		HTTPAddress:            getEnv("HTTP_ADDRESS", ":8080"),
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		SQLitePath:             getEnv("SQLITE_PATH", "evoting.db"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:           getEnv("POSTGRES_USER", "evoting"),
		PostgresPassword:       getEnv("POSTGRES_PASSWORD", "evoting"),
		PostgresDB:             getEnv("POSTGRES_DB", "evoting"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		RedisEnabled:           getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		PublishQueueKey:        getEnv("REDIS_PUBLISH_QUEUE", "fila:publicacoes"),
		ContadorKeyPrefix:      getEnv("REDIS_COUNTER_PREFIX", "contador"),
		LockKeyPrefix:          getEnv("REDIS_LOCK_PREFIX", "lock:publicacao"),
		RateLimitEnabled:       getEnvAsBool("ANTIFRAUDE_RATE_LIMIT_ENABLED", true),
		RateLimitMaxActions:    getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_MAX", 10),
		RateLimitWindowSeconds: getEnvAsInt("ANTIFRAUDE_RATE_LIMIT_WINDOW", 60),
		RateLimitKeyPrefix:     getEnv("ANTIFRAUDE_RATE_LIMIT_PREFIX", "ratelimit"),
		StrictTransitions:      getEnvAsBool("ELECTION_STRICT_TRANSITIONS", true),
		StepTimeout:            getEnvAsDuration("ORCHESTRATION_STEP_TIMEOUT", 5*time.Second),
		LockTTL:                getEnvAsDuration("ORCHESTRATION_LOCK_TTL", time.Minute),
		AuthJWTSecret:          os.Getenv("AUTH_JWT_SECRET"),
		AutoMigrate:            getEnvAsBool("DB_AUTO_MIGRATE", true),
		WorkerMetricsAddress:   getEnv("WORKER_METRICS_ADDRESS", ":9090"),
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("config: DB_DRIVER invalido: %q", cfg.DBDriver)
	}

	dbInt, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("config: REDIS_DB invalido: %w", err)
	}
	cfg.RedisDB = dbInt

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL invalido: %w", err)
	}

	if cfg.StepTimeout <= 0 {
		return Config{}, fmt.Errorf("config: ORCHESTRATION_STEP_TIMEOUT deve ser positivo")
	}

	// Uma execução completa faz a leitura de guarda e quatro etapas, cada uma limitada por StepTimeout.
	if cfg.RedisEnabled && cfg.LockTTL <= maxRunSteps*cfg.StepTimeout {
		return Config{}, fmt.Errorf("config: ORCHESTRATION_LOCK_TTL (%s) deve exceder %d x ORCHESTRATION_STEP_TIMEOUT (%s)",
			cfg.LockTTL, maxRunSteps, cfg.StepTimeout)
	}

	return cfg, nil
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

// DSN devolve a string de conexão do driver configurado.
func (c Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.PostgresDSN()
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return true
	}
}

// getEnvAsDuration aceita "5s"/"1m" e também inteiros interpretados como segundos.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
