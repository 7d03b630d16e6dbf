// Package config handles configuration loading for the assistant service.
// Values come from an optional YAML file, environment variables with the
// CONCIERGE_ prefix, and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Prompts PromptsConfig `mapstructure:"prompts"`
	State   StateConfig   `mapstructure:"state"`
	Loop    LoopConfig    `mapstructure:"loop"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// ModelConfig selects the reasoning service provider.
type ModelConfig struct {
	// Provider is one of "openai", "anthropic" or "mock".
	Provider    string  `mapstructure:"provider"`
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
}

// PromptsConfig locates the prompt template store.
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	// Backend is one of "memory", "file" or "sqlite".
	Backend string `mapstructure:"backend"`
	// Path is the file-store directory or the sqlite database file.
	Path string `mapstructure:"path"`
}

// LoopConfig tunes the orchestration loop.
type LoopConfig struct {
	// MaxIterations caps decision steps per turn; 0 disables the cap.
	MaxIterations int `mapstructure:"max_iterations"`
	// MaxParallelTools bounds concurrent tool executions per batch.
	MaxParallelTools int `mapstructure:"max_parallel_tools"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or text
}

// Load reads configuration from the given file path (optional, "" skips the
// file) merged over defaults and CONCIERGE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":4005")
	v.SetDefault("model.provider", "openai")
	// Empty default means the provider adapter picks its own model; the key
	// must still be registered or AutomaticEnv never sees CONCIERGE_MODEL_NAME.
	v.SetDefault("model.name", "")
	v.SetDefault("model.temperature", 0.0)
	v.SetDefault("prompts.dir", "fileshare/prompts")
	v.SetDefault("state.backend", "sqlite")
	v.SetDefault("state.path", "fileshare/transients/conversations.db")
	v.SetDefault("loop.max_iterations", 0)
	v.SetDefault("loop.max_parallel_tools", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("CONCIERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
