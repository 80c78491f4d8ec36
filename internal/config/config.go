// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at process
// start and passed to the components that need it.
type Config struct {
	Port      string `yaml:"port"`
	AuthToken string `yaml:"auth_token"`

	Log         LogConfig         `yaml:"log"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Store       StoreConfig       `yaml:"store"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Engine      EngineConfig      `yaml:"engine"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// InterpreterConfig selects and configures the language model backend.
type InterpreterConfig struct {
	Provider     string        `yaml:"provider"` // "gemini" or "openai"
	GeminiModel  string        `yaml:"gemini_model"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	OpenAIModel  string        `yaml:"openai_model"`
	OpenAIAPIKey string        `yaml:"openai_api_key"`
	Timeout      time.Duration `yaml:"timeout"`
}

// StoreConfig selects the profile store.
type StoreConfig struct {
	Kind      string `yaml:"kind"` // "sqlite", "gcs" or "memory"
	DBPath    string `yaml:"db_path"`
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`
}

// LedgerConfig selects where dispatched operations are written.
type LedgerConfig struct {
	Sinks          []string `yaml:"sinks"` // any of "bigquery", "notion", "log"
	ProjectID      string   `yaml:"project_id"`
	Dataset        string   `yaml:"dataset"`
	Table          string   `yaml:"table"`
	NotionToken    string   `yaml:"notion_token"`
	NotionDatabase string   `yaml:"notion_database"`
	DryRun         bool     `yaml:"dry_run"`
}

// DispatchConfig sizes the in-process dispatch queue.
type DispatchConfig struct {
	QueueSize  int `yaml:"queue_size"`
	Workers    int `yaml:"workers"`
	MaxRetries int `yaml:"max_retries"`
}

// TelegramConfig enables reply delivery to Telegram.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	APIBase  string `yaml:"api_base"`
}

// EngineConfig holds orchestration limits.
type EngineConfig struct {
	HistoryCap      int `yaml:"history_cap"`
	OperationCap    int `yaml:"operation_cap"`
	ShortAnswerLen  int `yaml:"short_answer_len"`
	ShortAnswerWord int `yaml:"short_answer_words"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port: "8080",
		Log:  LogConfig{Level: "info", Format: "console"},
		Interpreter: InterpreterConfig{
			Provider:    "gemini",
			GeminiModel: "gemini-2.5-flash",
			OpenAIModel: "gpt-4o-mini",
			Timeout:     60 * time.Second,
		},
		Store: StoreConfig{
			Kind:      "sqlite",
			DBPath:    "./data/profiles.db",
			GCSPrefix: "profiles/",
		},
		Ledger: LedgerConfig{
			Sinks:   []string{"log"},
			Dataset: "finance",
			Table:   "chat_operations",
		},
		Dispatch: DispatchConfig{QueueSize: 100, Workers: 5, MaxRetries: 3},
		Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		Engine: EngineConfig{
			HistoryCap:      20,
			OperationCap:    5,
			ShortAnswerLen:  50,
			ShortAnswerWord: 5,
		},
	}
}

// Load reads .env (if present), the optional YAML file named by CONFIG_FILE,
// then environment variables, which take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Load: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("Load: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.AuthToken = getEnv("API_AUTH_TOKEN", c.AuthToken)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Interpreter.Provider = getEnv("INTERPRETER_PROVIDER", c.Interpreter.Provider)
	c.Interpreter.GeminiModel = getEnv("GEMINI_MODEL", c.Interpreter.GeminiModel)
	c.Interpreter.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Interpreter.GeminiAPIKey)
	c.Interpreter.OpenAIModel = getEnv("OPENAI_MODEL", c.Interpreter.OpenAIModel)
	c.Interpreter.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Interpreter.OpenAIAPIKey)
	c.Interpreter.Timeout = getEnvDuration("INTERPRETER_TIMEOUT", c.Interpreter.Timeout)

	c.Store.Kind = getEnv("PROFILE_STORE", c.Store.Kind)
	c.Store.DBPath = getEnv("DB_PATH", c.Store.DBPath)
	c.Store.GCSBucket = getEnv("GCS_BUCKET", c.Store.GCSBucket)
	c.Store.GCSPrefix = getEnv("GCS_PREFIX", c.Store.GCSPrefix)

	if v, ok := os.LookupEnv("LEDGER_SINKS"); ok {
		c.Ledger.Sinks = splitList(v)
	}
	c.Ledger.ProjectID = getEnv("GCP_PROJECT", c.Ledger.ProjectID)
	c.Ledger.Dataset = getEnv("BQ_DATASET", c.Ledger.Dataset)
	c.Ledger.Table = getEnv("BQ_TABLE", c.Ledger.Table)
	c.Ledger.NotionToken = getEnv("NOTION_TOKEN", c.Ledger.NotionToken)
	c.Ledger.NotionDatabase = getEnv("NOTION_DATABASE_ID", c.Ledger.NotionDatabase)
	c.Ledger.DryRun = getEnvBool("DRY_RUN", c.Ledger.DryRun)

	c.Dispatch.QueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", c.Dispatch.QueueSize)
	c.Dispatch.Workers = getEnvInt("DISPATCH_WORKERS", c.Dispatch.Workers)
	c.Dispatch.MaxRetries = getEnvInt("DISPATCH_MAX_RETRIES", c.Dispatch.MaxRetries)

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.APIBase = getEnv("TELEGRAM_API_BASE", c.Telegram.APIBase)

	c.Engine.HistoryCap = getEnvInt("HISTORY_CAP", c.Engine.HistoryCap)
	c.Engine.OperationCap = getEnvInt("OPERATION_CAP", c.Engine.OperationCap)
	c.Engine.ShortAnswerLen = getEnvInt("SHORT_ANSWER_LEN", c.Engine.ShortAnswerLen)
	c.Engine.ShortAnswerWord = getEnvInt("SHORT_ANSWER_WORDS", c.Engine.ShortAnswerWord)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.Interpreter.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("INTERPRETER_PROVIDER must be gemini or openai, got %q", c.Interpreter.Provider)
	}
	if c.Interpreter.Timeout <= 0 {
		return fmt.Errorf("INTERPRETER_TIMEOUT must be > 0")
	}

	switch c.Store.Kind {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty for sqlite store")
		}
	case "gcs":
		if c.Store.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET cannot be empty for gcs store")
		}
	case "memory":
	default:
		return fmt.Errorf("PROFILE_STORE must be sqlite, gcs or memory, got %q", c.Store.Kind)
	}

	for _, sink := range c.Ledger.Sinks {
		switch sink {
		case "bigquery":
			if c.Ledger.ProjectID == "" {
				return fmt.Errorf("GCP_PROJECT cannot be empty for bigquery sink")
			}
		case "notion":
			if c.Ledger.NotionToken == "" || c.Ledger.NotionDatabase == "" {
				return fmt.Errorf("NOTION_TOKEN and NOTION_DATABASE_ID are required for notion sink")
			}
		case "log":
		default:
			return fmt.Errorf("unknown ledger sink %q", sink)
		}
	}

	if c.Dispatch.QueueSize <= 0 || c.Dispatch.Workers <= 0 {
		return fmt.Errorf("DISPATCH_QUEUE_SIZE and DISPATCH_WORKERS must be > 0")
	}
	if c.Dispatch.MaxRetries < 0 {
		return fmt.Errorf("DISPATCH_MAX_RETRIES must be >= 0")
	}
	if c.Engine.HistoryCap <= 0 || c.Engine.OperationCap <= 0 {
		return fmt.Errorf("HISTORY_CAP and OPERATION_CAP must be > 0")
	}
	if c.Engine.ShortAnswerLen <= 0 || c.Engine.ShortAnswerWord <= 0 {
		return fmt.Errorf("SHORT_ANSWER_LEN and SHORT_ANSWER_WORDS must be > 0")
	}
	return nil
}

// HasSink reports whether the named ledger sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Ledger.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
