// Package config loads SDK configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Log            LogConfig              `mapstructure:"log"`
	Server         ServerConfig           `mapstructure:"server"`
	Memory         MemoryConfig           `mapstructure:"memory"`
	Generation     GenerationConfig       `mapstructure:"generation"`
	Models         map[string]ModelConfig `mapstructure:"models"`
	CircuitBreaker CircuitBreakerConfig   `mapstructure:"circuit_breaker"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig controls the websocket server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MemoryConfig controls the neural memory system.
type MemoryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Store         string        `mapstructure:"store"` // badger, chromem
	DBPath        string        `mapstructure:"db_path"`
	MinSimilarity float64       `mapstructure:"min_similarity"`
	RetrieveLimit int           `mapstructure:"retrieve_limit"`
	DecayEnabled  bool          `mapstructure:"decay_enabled"`
	DecayHalfLife time.Duration `mapstructure:"decay_half_life"`
}

// GenerationConfig controls the optimization loop.
type GenerationConfig struct {
	Provider           string  `mapstructure:"provider"` // anthropic, openai
	Model              string  `mapstructure:"model"`
	CriticModel        string  `mapstructure:"critic_model"` // Defaults to Model
	MaxRounds          int     `mapstructure:"max_rounds"`
	QualityThreshold   float64 `mapstructure:"quality_threshold"`
	Temperature        float64 `mapstructure:"temperature"`
	MaxTokens          int64   `mapstructure:"max_tokens"`
	CandidatesPerRound int     `mapstructure:"candidates_per_round"`
}

// ModelConfig holds per-provider credentials and endpoints.
type ModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// CircuitBreakerConfig controls the model-call circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Interval         time.Duration `mapstructure:"interval"`
	ReadyToTripRatio float64       `mapstructure:"ready_to_trip_ratio"`
}

// Load reads configuration from the given file (optional), falling back to
// apex.yaml in the working directory, then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("apex")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.apex")
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults plus env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	overrideWithEnv(&cfg)

	if cfg.Generation.CriticModel == "" {
		cfg.Generation.CriticModel = cfg.Generation.Model
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)

	v.SetDefault("memory.enabled", false)
	v.SetDefault("memory.store", "badger")
	v.SetDefault("memory.db_path", defaultDBPath())
	v.SetDefault("memory.min_similarity", 0.5)
	v.SetDefault("memory.retrieve_limit", 10)
	v.SetDefault("memory.decay_enabled", true)
	v.SetDefault("memory.decay_half_life", 90*24*time.Hour)

	v.SetDefault("generation.provider", "anthropic")
	v.SetDefault("generation.model", "claude-sonnet-4-20250514")
	v.SetDefault("generation.max_rounds", 4)
	v.SetDefault("generation.quality_threshold", 0.85)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.max_tokens", 4096)
	v.SetDefault("generation.candidates_per_round", 1)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.timeout", 60*time.Second)
	v.SetDefault("circuit_breaker.interval", 60*time.Second)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if cfg.Models == nil {
		cfg.Models = make(map[string]ModelConfig)
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		mc := cfg.Models["anthropic"]
		mc.APIKey = key
		cfg.Models["anthropic"] = mc
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		mc := cfg.Models["openai"]
		mc.APIKey = key
		cfg.Models["openai"] = mc
	}

	if path := os.Getenv("APEX_DB_PATH"); path != "" {
		cfg.Memory.DBPath = path
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "apex-patterns"
	}
	return filepath.Join(home, ".apex", "patterns")
}
