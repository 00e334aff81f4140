package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/intprep/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/"
	DefaultTemperature = 0.4
	DefaultMaxTokens   = 1200
)

// DefaultModelCandidates is the fallback order tried for every generation
var DefaultModelCandidates = []string{
	"llama-3.2-90b-text-preview",
	"llama-3.2-11b-text-preview",
	"llama3-70b-8192",
	"llama3-8b-8192",
	"mixtral-8x7b-32768",
	"gemma2-9b-it",
	"gemma-7b-it",
}

// Config holds the application configuration.
// The Groq API key is not stored here; it is resolved per request.
type Config struct {
	// Environment
	Environment string
	Port        string
	LogLevel    string

	// LLM
	GroqBaseURL     string
	CredentialKey   string   // variable name holding the Groq API key
	ModelCandidates []string // tried in order until one streams successfully
	Temperature     float64
	MaxTokens       int
	PromptsDir      string // optional directory overriding the built-in prompt files

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// Optional YAML overlay
	ConfigFile string
}

// fileConfig is the YAML overlay layout
type fileConfig struct {
	Environment string    `yaml:"environment"`
	Port        string    `yaml:"port"`
	LogLevel    string    `yaml:"log_level"`
	GroqBaseURL string    `yaml:"groq_base_url"`
	Models      *[]string `yaml:"models"`
	Temperature *float64  `yaml:"temperature"`
	MaxTokens   *int      `yaml:"max_tokens"`
	PromptsDir  string    `yaml:"prompts_dir"`
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		GroqBaseURL:       getEnv("GROQ_BASE_URL", DefaultGroqBaseURL),
		CredentialKey:     getEnv("GROQ_API_KEY_VAR", "GROQ_API_KEY"),
		ModelCandidates:   getEnvList("MODEL_CANDIDATES", DefaultModelCandidates),
		Temperature:       getEnvFloat("LLM_TEMPERATURE", DefaultTemperature),
		MaxTokens:         getEnvInt("LLM_MAX_TOKENS", DefaultMaxTokens),
		PromptsDir:        getEnv("PROMPTS_DIR", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		ConfigFile:        getEnv("INTPREP_CONFIG", ""),
	}
}

// ApplyFile overlays values from a YAML file. Keys absent from the file keep
// their current value; an explicit empty models list is kept as empty.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Environment != "" {
		c.Environment = fc.Environment
	}
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.GroqBaseURL != "" {
		c.GroqBaseURL = fc.GroqBaseURL
	}
	if fc.Models != nil {
		c.ModelCandidates = cleanList(*fc.Models)
	}
	if fc.Temperature != nil {
		c.Temperature = *fc.Temperature
	}
	if fc.MaxTokens != nil {
		c.MaxTokens = *fc.MaxTokens
	}
	if fc.PromptsDir != "" {
		c.PromptsDir = fc.PromptsDir
	}
	c.ConfigFile = path
	return nil
}

// Validate checks the sampling parameters and log level
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	return cleanList(strings.Split(value, ","))
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
