package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the service configuration, read from YAML and the environment.
type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`
	// Remote is the shared Postgres store. An empty URL means offline mode.
	Remote struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Local struct {
		Backend string `yaml:"backend"` // file, redis or memory
		Dir     string `yaml:"dir"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"local"`
	Polling struct {
		Interval string `yaml:"interval"`
	} `yaml:"polling"`
}

// Load reads YAML config from path and overlays environment variables. A
// missing file is not an error: defaults and the environment still apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config: %s not found, using defaults", path)
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overlay(&cfg.Server.Port, "PORT")
	overlay(&cfg.Server.PublicURL, "PUBLIC_URL")
	overlay(&cfg.Remote.URL, "DATABASE_URL")
	overlay(&cfg.Remote.Timeout, "REMOTE_TIMEOUT")
	overlay(&cfg.Local.Backend, "LOCAL_BACKEND")
	overlay(&cfg.Local.Dir, "LOCAL_DIR")
	overlay(&cfg.Local.Redis.Addr, "REDIS_ADDR")
	overlay(&cfg.Local.Redis.Password, "REDIS_PASSWORD")
	overlay(&cfg.Polling.Interval, "POLL_INTERVAL")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Local.Redis.DB = db
		} else {
			log.Printf("config: invalid REDIS_DB %q, keeping %d", v, cfg.Local.Redis.DB)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}
	if cfg.Remote.Timeout == "" {
		cfg.Remote.Timeout = "3s"
	}
	if cfg.Local.Backend == "" {
		if cfg.Local.Redis.Addr != "" {
			cfg.Local.Backend = "redis"
		} else {
			cfg.Local.Backend = "file"
		}
	}
	if cfg.Local.Dir == "" {
		cfg.Local.Dir = "data"
	}
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// RemoteEnabled reports whether a remote store is configured.
func (c Config) RemoteEnabled() bool {
	return c.Remote.URL != ""
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
