package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures node level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	ServerMode    bool
	JWTSigningKey string
	VaultSecret   string
	SessionTTL    time.Duration
	IndexWorkers  int
	DatabaseURL   string
	Redis         RedisConfig
}

// RedisConfig captures the shared session store settings. An empty URL means
// redis is not configured and the in-memory store is used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("ARX_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logLevel := os.Getenv("ARX_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	jwtSigningKey := os.Getenv("ARX_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default, override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	vaultSecret := os.Getenv("ARX_VAULT_SECRET")
	if vaultSecret == "" {
		vaultSecret = "dev-vault-secret-change-in-production"
	}

	return Server{
		Addr:          addr,
		LogLevel:      logLevel,
		ServerMode:    os.Getenv("ARX_SERVER_MODE") != "false",
		JWTSigningKey: jwtSigningKey,
		VaultSecret:   vaultSecret,
		SessionTTL:    envDuration("ARX_SESSION_TTL", 12*time.Hour),
		IndexWorkers:  envInt("ARX_INDEX_WORKERS", 4),
		DatabaseURL:   os.Getenv("ARX_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("ARX_REDIS_URL"),
			PoolSize:     envInt("ARX_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ARX_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("ARX_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ARX_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ARX_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
