package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/CtrlAltQ/jobseek-sub001/internal/logger"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Store    StoreConfig    `toml:"store" mapstructure:"store"`
	Activity ActivityConfig `toml:"activity" mapstructure:"activity"`
	Auth     AuthConfig     `toml:"auth" mapstructure:"auth"`
	Stream   StreamConfig   `toml:"stream" mapstructure:"stream"`
	Log      logger.Config  `toml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Listen     string `toml:"listen" mapstructure:"listen"`
	BasePath   string `toml:"base_path" mapstructure:"base_path"`
	CORSOrigin string `toml:"cors_origin" mapstructure:"cors_origin"`
}

type StoreConfig struct {
	// DSN selects the backend: sqlite path, sqlite://, postgres://.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type ActivityConfig struct {
	// Optional analytics sink DSN (sqlite/postgres/clickhouse). Empty disables.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type AuthConfig struct {
	// APIKey guards the agent ingestion endpoints. Empty rejects all ingests.
	APIKey string `toml:"api_key" mapstructure:"api_key"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `toml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ClientBuffer      int           `toml:"client_buffer" mapstructure:"client_buffer"`
}

// Default returns the configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Server: ServerConfig{
			Listen:     ":8080",
			BasePath:   "/api",
			CORSOrigin: "*",
		},
		Store:  StoreConfig{DSN: "jobseek.db"},
		Stream: StreamConfig{HeartbeatInterval: 15 * time.Second, ClientBuffer: 16},
	}
}

// Load reads a TOML config file and merges it over defaults.
func Load(path string) (FileConfig, error) {
	fc := Default()
	if path == "" {
		return fc, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if fc.Server.Listen == "" {
		fc.Server.Listen = ":8080"
	}
	if fc.Store.DSN == "" {
		fc.Store.DSN = "jobseek.db"
	}
	if fc.Stream.HeartbeatInterval <= 0 {
		fc.Stream.HeartbeatInterval = 15 * time.Second
	}
	if fc.Stream.ClientBuffer <= 0 {
		fc.Stream.ClientBuffer = 16
	}
	return fc, nil
}
