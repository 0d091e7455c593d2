package app

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	API struct {
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Sessions struct {
		Backend     string `toml:"backend"`
		RedisURL    string `toml:"redis_url"`
		KeyTemplate string `toml:"key_template"`
		TTL         string `toml:"ttl"`
	} `toml:"sessions"`

	Display struct {
		DateFormat string `toml:"date_format"`
	} `toml:"display"`

	Export struct {
		SheetName string `toml:"sheet_name"`
	} `toml:"export"`

	sessionTTL time.Duration
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	defaultSessionKeyTemplate = "klassbok:session:{class}:{date}"
	defaultSessionTTL         = 12 * time.Hour
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	if config.Database.MigrationsDir == "" {
		config.Database.MigrationsDir = "./migrations"
	}
	if config.Sessions.Backend == "" {
		config.Sessions.Backend = SessionBackendMemory
	}
	if config.Sessions.KeyTemplate == "" {
		config.Sessions.KeyTemplate = defaultSessionKeyTemplate
	}
	if config.Display.DateFormat == "" {
		config.Display.DateFormat = "2006-01-02"
	}
	if config.Export.SheetName == "" {
		config.Export.SheetName = "Journal"
	}

	config.sessionTTL = defaultSessionTTL
	if config.Sessions.TTL != "" {
		ttl, err := time.ParseDuration(config.Sessions.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid sessions.ttl %q: %w", config.Sessions.TTL, err)
		}
		config.sessionTTL = ttl
	}

	logger.Debug.Printf("Loaded sessions config: %+v", config.Sessions)

	return &config, nil
}

func (c *Config) SessionTTL() time.Duration {
	return c.sessionTTL
}
