package activity

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ConfigDB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type ConfigKafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type Config struct {
	ServerPort   string      `yaml:"srv_port"`
	CfgDB        ConfigDB    `yaml:"db"`
	MaxOpenConns int         `yaml:"max_open_conns"`
	Kafka        ConfigKafka `yaml:"kafka"`
}

func NewConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}

	if brokers := os.Getenv("ACTIVITY_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = ":8082"
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "portal-events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "activity-group"
	}

	return &cfg, nil
}
