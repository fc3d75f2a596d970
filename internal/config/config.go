package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Chat     ChatConfig
	SendAPI  SendAPIConfig
	Sweeper  SweeperConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

// AuthConfig holds the shared secret the processing endpoint compares
// incoming bearer tokens against.
type AuthConfig struct {
	EndpointSecret string
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
}

// SendAPIConfig points the background sweeper at the main application's
// internal send endpoint. The secret defaults to the endpoint secret when
// not set separately.
type SendAPIConfig struct {
	URL    string
	Secret string
}

type SweeperConfig struct {
	Interval time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

func LoadAll() (*Config, error) {
	endpointSecret := mustEnv("PROCESS_ENDPOINT_SECRET")

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: mustEnv("POSTGRES_URL"),
		},
		Auth: AuthConfig{
			EndpointSecret: endpointSecret,
		},
		Chat: ChatConfig{
			BaseURL: mustEnv("CHAT_API_URL"),
			APIKey:  mustEnv("CHAT_API_KEY"),
		},
		SendAPI: SendAPIConfig{
			URL:    mustEnv("SEND_API_URL"),
			Secret: getEnv("SEND_API_SECRET", endpointSecret),
		},
		Sweeper: SweeperConfig{
			Interval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 900)) * time.Second,
		},
		Redis: loadRedisConfig(),
	}

	validate(cfg)
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 86400)) * time.Second,
	}
}

func validate(cfg *Config) {
	if cfg.Sweeper.Interval <= 0 {
		panic("SWEEP_INTERVAL_SECONDS must be > 0")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}
