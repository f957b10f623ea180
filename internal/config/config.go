package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultConfigFile = "config.json"

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Log         LogConfig                 `json:"log"`
	CORS        CORSConfig                `json:"cors"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	GinMode       string `json:"gin_mode"`
	// EventWorkers and EventQueueSize size the async event dispatcher.
	EventWorkers   int `json:"event_workers"`
	EventQueueSize int `json:"event_queue_size"`
}

// DatabaseConfig holds connection settings for one driver. SQLite only reads DSN.
type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

// RedisConfig configures the message event publisher.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress:  ":8080",
			EventWorkers:   2,
			EventQueueSize: 256,
		},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: "social.db"},
		},
		Redis: RedisConfig{
			Host:    "127.0.0.1",
			Port:    6379,
			Channel: "social:messages",
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default file yields Default(); an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := cfg.applyEnv(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	cfg := Default()
	cfg.Databases = nil
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}

	for _, name := range []string{"sqlite", "sqlite3"} {
		dbCfg, ok := cfg.Databases[name]
		if !ok {
			continue
		}
		dbCfg.DSN = resolveSQLitePath(dbCfg.DSN, filepath.Dir(absPath))
		cfg.Databases[name] = dbCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSQLitePath anchors relative database files at the config directory.
func resolveSQLitePath(dsn, base string) string {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	if filepath.IsAbs(dsn) {
		return dsn
	}
	return filepath.Join(base, dsn)
}

func (c *Config) applyEnv() error {
	if addr := os.Getenv("SOCIALMEDIA_ADDR"); addr != "" {
		c.BasicConfig.ServerAddress = addr
	}
	if level := os.Getenv("SOCIALMEDIA_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if addr := os.Getenv("SOCIALMEDIA_REDIS_ADDR"); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("parse SOCIALMEDIA_REDIS_ADDR: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("parse SOCIALMEDIA_REDIS_ADDR port: %w", err)
		}
		c.Redis.Host = host
		c.Redis.Port = port
		c.Redis.Enabled = true
	}
	return nil
}
