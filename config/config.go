package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	LogLevel   string
	ServerPort int
	API        APIConfig
	Session    SessionConfig
	Tokens     TokenConfig
	Redis      RedisConfig
	DevAPI     DevAPIConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Name    string
	Key     string
	Secure  bool
	Backend string
	MaxAge  time.Duration
}

type TokenConfig struct {
	Store string
	File  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DevAPIConfig struct {
	Port       int
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

const (
	SessionBackendCookie = "cookie"
	SessionBackendRedis  = "redis"

	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		Env:        getEnv("ENV", "prod"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			Timeout: getEnvDuration("API_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			Name:    getEnv("SESSION_NAME", "znahidky"),
			Key:     getEnv("SESSION_KEY", ""),
			Secure:  getEnvBool("SESSION_SECURE", false),
			Backend: getEnv("SESSION_BACKEND", SessionBackendCookie),
			MaxAge:  getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		},
		Tokens: TokenConfig{
			Store: getEnv("TOKEN_STORE", TokenStoreFile),
			File:  getEnv("TOKEN_FILE", defaultTokenFile()),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		DevAPI: DevAPIConfig{
			Port:       getEnvInt("DEVAPI_PORT", 8000),
			JWTSecret:  getEnv("DEVAPI_JWT_SECRET", "dev-secret"),
			AccessTTL:  getEnvDuration("DEVAPI_ACCESS_TTL", 5*time.Minute),
			RefreshTTL: getEnvDuration("DEVAPI_REFRESH_TTL", 24*time.Hour),
		},
	}
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".znahidky-tokens.yaml"
	}
	return filepath.Join(dir, "znahidky", "tokens.yaml")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
