// Package config loads runtime settings from defaults, an optional YAML file,
// .env files and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	World   WorldConfig   `yaml:"world"`
	LLM     LLMConfig     `yaml:"llm"`
	NATS    NATSConfig    `yaml:"nats"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type WorldConfig struct {
	BroadcastRadius float64       `yaml:"broadcast_radius"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	ViewRadius      int           `yaml:"view_radius"`
	SeedAgents      bool          `yaml:"seed_agents"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NATSConfig enables response publishing when URL is set.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig points at the badger directory. Empty keeps imported agents
// in memory.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		World: WorldConfig{
			BroadcastRadius: 10,
			TickInterval:    250 * time.Millisecond,
			ViewRadius:      10,
			SeedAgents:      true,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash",
			MaxTokens:   256,
			Temperature: 0.8,
			Timeout:     15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (if it exists) and the .env file in the working directory.
func Load(path string) (*Config, error) {
	return LoadFiles(path, ".env")
}

// LoadFiles is Load with explicit .env files. Missing files are skipped.
// Process environment variables win over .env values.
func LoadFiles(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	env, err := readDotEnv(envFiles)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides(env.get)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type dotEnv map[string]string

func readDotEnv(files []string) (dotEnv, error) {
	env := dotEnv{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	return env, nil
}

func (e dotEnv) get(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return e[key]
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if p := getenv("AINSPACE_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	switch c.LLM.Provider {
	case "openai":
		if key := getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	case "gemini":
		if key := getenv("GEMINI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}
	if m := getenv("AINSPACE_LLM_MODEL"); m != "" {
		c.LLM.Model = m
	}

	if url := getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}
	if addr := getenv("AINSPACE_LISTEN"); addr != "" {
		c.Server.Listen = addr
	}
	if dir := getenv("AINSPACE_DATA_DIR"); dir != "" {
		c.Storage.DataDir = filepath.Clean(dir)
	}
	if lvl := getenv("AINSPACE_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if r := getenv("AINSPACE_BROADCAST_RADIUS"); r != "" {
		if v, err := strconv.ParseFloat(r, 64); err == nil {
			c.World.BroadcastRadius = v
		}
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini", "offline":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.World.BroadcastRadius <= 0 {
		return fmt.Errorf("world.broadcast_radius must be positive, got %v", c.World.BroadcastRadius)
	}
	if c.World.TickInterval <= 0 {
		return fmt.Errorf("world.tick_interval must be positive, got %v", c.World.TickInterval)
	}
	if c.World.ViewRadius < 0 {
		return fmt.Errorf("world.view_radius must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
