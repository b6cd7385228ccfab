package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors config.yaml. An empty backend section selects the in-memory implementation.
type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI        string `yaml:"uri"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
	Quiz struct {
		TTL     string `yaml:"ttl"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"quiz"`
	Grading struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"grading"`
	Dispatcher struct {
		Workers int    `yaml:"workers"`
		Queue   string `yaml:"queue"`
	} `yaml:"dispatcher"`
	Scheduler struct {
		Interval    string `yaml:"interval"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"scheduler"`
	Notifications struct {
		Channel string `yaml:"channel"`
	} `yaml:"notifications"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "quiz"
	}
	if c.Mongo.Collection == "" {
		c.Mongo.Collection = "events"
	}
	if c.Dispatcher.Workers <= 0 {
		c.Dispatcher.Workers = 2
	}
	if c.Dispatcher.Queue == "" {
		c.Dispatcher.Queue = "grading-queue"
	}
	if c.Scheduler.Concurrency <= 0 {
		c.Scheduler.Concurrency = 4
	}
	if c.Notifications.Channel == "" {
		c.Notifications.Channel = "notifications"
	}
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
