package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string  `yaml:"socket-port" env:"SOCKET_PORT" env-default:"3001"`
	Session    Session `yaml:"session"`
	Redis      Redis   `yaml:"redis"`
}

type Session struct {
	TTL           time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	SendBuffer    int           `yaml:"send-buffer" env:"SESSION_SEND_BUFFER" env-default:"32"`
	ErrorWindow   time.Duration `yaml:"error-window" env:"SESSION_ERROR_WINDOW" env-default:"3s"`
}

type Redis struct {
	Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	MatchTTL    time.Duration `yaml:"match-ttl" env:"REDIS_MATCH_TTL" env-default:"24h"`
	RecentLimit int64         `yaml:"recent-limit" env:"REDIS_RECENT_LIMIT" env-default:"100"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads the config file at path, falling back to env-defaults for missing keys.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// SlogLevel maps log-level to a slog level; unknown values fall back to info.
func (that *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(that.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return level
}
