// Package config loads courseqa settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey is returned when an LLM-backed command runs without OPENAI_API_KEY.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrInvalidBackend is returned for an unknown MEMORY_BACKEND value.
	ErrInvalidBackend = errors.New("invalid memory backend")
)

// Memory backends.
const (
	BackendServer   = "server"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds every runtime setting shared by the command line tools.
type Config struct {
	OpenAIAPIKey   string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	ChatModel      string `yaml:"chat_model" mapstructure:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`

	RedisURL             string `yaml:"redis_url" mapstructure:"redis_url"`
	CourseIndex          string `yaml:"course_index" mapstructure:"course_index"`
	BasicIndex           string `yaml:"basic_index" mapstructure:"basic_index"`
	HierarchicalDataPath string `yaml:"hierarchical_data_path" mapstructure:"hierarchical_data_path"`

	MemoryBackend   string `yaml:"memory_backend" mapstructure:"memory_backend"`
	AgentMemoryURL  string `yaml:"agent_memory_url" mapstructure:"agent_memory_url"`
	MemoryNamespace string `yaml:"memory_namespace" mapstructure:"memory_namespace"`
	MemoryModelName string `yaml:"memory_model_name" mapstructure:"memory_model_name"`
	SQLitePath      string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresDSN     string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`

	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`

	MaxReActIterations   int `yaml:"max_react_iterations" mapstructure:"max_react_iterations"`
	MaxQualityIterations int `yaml:"max_quality_iterations" mapstructure:"max_quality_iterations"`

	// RequireLLM makes Validate insist on an API key. Commands that only
	// touch Redis or files leave it false.
	RequireLLM bool `yaml:"-" mapstructure:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ChatModel:            "gpt-4o-mini",
		EmbeddingModel:       "text-embedding-3-small",
		RedisURL:             "redis://redis:6379",
		CourseIndex:          "hierarchical_courses",
		BasicIndex:           "courses",
		HierarchicalDataPath: "data/hierarchical/hierarchical_courses.json",
		MemoryBackend:        BackendServer,
		AgentMemoryURL:       "http://localhost:8088",
		MemoryNamespace:      "course_qa_agent",
		MemoryModelName:      "gpt-4o-mini",
		SQLitePath:           "memories.db",
		LogLevel:             "info",
		ListenAddr:           ":8080",
		MaxReActIterations:   5,
		MaxQualityIterations: 2,
	}
}

// envBindings maps environment variables onto config fields.
var envBindings = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"OPENAI_API_KEY", func(c *Config, v string) { c.OpenAIAPIKey = v }},
	{"OPENAI_API_BASE", func(c *Config, v string) { c.OpenAIBaseURL = v }},
	{"OPENAI_MODEL", func(c *Config, v string) { c.ChatModel = v }},
	{"OPENAI_EMBEDDING_MODEL", func(c *Config, v string) { c.EmbeddingModel = v }},
	{"REDIS_URL", func(c *Config, v string) { c.RedisURL = v }},
	{"HIERARCHICAL_DATA_PATH", func(c *Config, v string) { c.HierarchicalDataPath = v }},
	{"MEMORY_BACKEND", func(c *Config, v string) { c.MemoryBackend = strings.ToLower(v) }},
	{"AGENT_MEMORY_URL", func(c *Config, v string) { c.AgentMemoryURL = v }},
	{"MEMORY_SQLITE_PATH", func(c *Config, v string) { c.SQLitePath = v }},
	{"MEMORY_POSTGRES_DSN", func(c *Config, v string) { c.PostgresDSN = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.LogLevel = v }},
	{"LISTEN_ADDR", func(c *Config, v string) { c.ListenAddr = v }},
}

// Load builds a Config. path may name a YAML file; an empty path skips it.
// A .env file in the working directory is loaded when present and never
// overrides variables that are already set.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	for _, b := range envBindings {
		if v, ok := os.LookupEnv(b.name); ok && v != "" {
			b.set(cfg, v)
		}
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.MemoryBackend {
	case BackendServer, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.MemoryBackend)
	}
	if c.MemoryBackend == BackendPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres backend needs MEMORY_POSTGRES_DSN", ErrInvalidBackend)
	}
	if c.RequireLLM && c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
