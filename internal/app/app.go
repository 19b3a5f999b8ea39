package app

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort      = ":8080"
	defaultBackendURL      = "http://localhost:8000"
	defaultBackendTimeout  = 10 * time.Second
	defaultRedisAddr       = "redis:6379"
	defaultSessionDuration = 30 * time.Minute
	defaultCookieName      = "portal_session"
	defaultKafkaTopic      = "portal-events"

	EnvBackendURL = "PORTAL_BACKEND_URL"
	EnvRedisAddr  = "PORTAL_REDIS_ADDR"
)

type Config struct {
	ServerPort      string        `yaml:"srv_port"`
	SessionDuration time.Duration `yaml:"session_duration"`
	CSRFKey         string        `yaml:"csrf_key"`
	Backend         ConfigBackend `yaml:"backend"`
	Redis           ConfigRedis   `yaml:"redis"`
	Kafka           ConfigKafka   `yaml:"kafka"`
	Cookie          ConfigCookie  `yaml:"cookie"`
}

// ConfigBackend адрес API сервиса отзывов
type ConfigBackend struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ConfigRedis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ConfigKafka пустой список брокеров выключает отправку событий
type ConfigKafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ConfigCookie struct {
	Name   string `yaml:"name"`
	Secure bool   `yaml:"secure"`
}

func NewConfig(configPath string) (*Config, error) {
	cfg, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var c Config
	err = yaml.Unmarshal(cfg, &c)
	if err != nil {
		return nil, err
	}

	c.applyEnv()
	c.applyDefaults()

	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.SessionDuration <= 0 {
		c.SessionDuration = defaultSessionDuration
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBackendURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = defaultBackendTimeout
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = defaultCookieName
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = defaultKafkaTopic
	}
}
