package models

import (
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultMaxUploadBytes is the payload ceiling applied when the config leaves
// max_upload_bytes unset (10 MiB).
const DefaultMaxUploadBytes = 10 << 20

type Config struct {
	ServerAddr     string `yaml:"server_addr"`
	DatabaseURL    string `yaml:"database_url"`
	StoragePath    string `yaml:"storage_path"`
	KafkaBroker    string `yaml:"kafka_broker"`
	KafkaTopic     string `yaml:"kafka_topic"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &cfg, nil
}
