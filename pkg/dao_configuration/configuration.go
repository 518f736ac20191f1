package dao_configuration

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongoDB = "mongodb"
	StoreMemory  = "memory"
)

type ServerConfig struct {
	ServerPort        string        `yaml:"port"`
	DocumentDBUri     string        `yaml:"documentDbUri"`
	DocumentDBName    string        `yaml:"documentDbName"`
	DocumentDBTimeout time.Duration `yaml:"documentDbTimeout"`
	Store             string        `yaml:"store"`
	LogType           string        `yaml:"logType"`
	LogLevel          string        `yaml:"logLevel"`
}

var (
	instance *ServerConfig
	once     sync.Once
)

// GetConfig returns the process-wide configuration, loaded once from .env,
// the optional YAML file named by DAO_CONFIG_FILE and the environment.
// Load errors fall back to defaults.
func GetConfig() *ServerConfig {
	once.Do(func() {
		cfg, err := Load(".env")
		if err != nil {
			cfg = defaults()
		}
		instance = cfg
	})
	return instance
}

// Load builds a configuration. Precedence, lowest first: defaults, YAML file,
// environment (including variables loaded from envPath).
func Load(envPath string) (*ServerConfig, error) {
	return load(envPath, "")
}

// load reads configFile, or DAO_CONFIG_FILE when configFile is empty.
func load(envPath, configFile string) (*ServerConfig, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
			}
		}
	}

	cfg := defaults()
	path := configFile
	if path == "" {
		path = os.Getenv("DAO_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerPort = getEnv("PORT", cfg.ServerPort)
	cfg.DocumentDBUri = getEnv("DOCUMENT_DB_URI", cfg.DocumentDBUri)
	cfg.DocumentDBName = getEnv("DOCUMENT_DB_NAME", cfg.DocumentDBName)
	cfg.DocumentDBTimeout = getEnvAsDuration("DOCUMENT_DB_TIMEOUT", cfg.DocumentDBTimeout)
	cfg.Store = getEnv("STORE", cfg.Store)
	cfg.LogType = getEnv("LOG_TYPE", cfg.LogType)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	switch cfg.Store {
	case StoreMongoDB, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return cfg, nil
}

func defaults() *ServerConfig {
	return &ServerConfig{
		ServerPort:        "8080",
		DocumentDBUri:     "mongodb://localhost:27017",
		DocumentDBName:    "endor",
		DocumentDBTimeout: 10 * time.Second,
		Store:             StoreMongoDB,
		LogType:           "JSON",
		LogLevel:          "INFO",
	}
}

// Helpers
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
