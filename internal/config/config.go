package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for unibot.
type Config struct {
	General   GeneralConfig   `json:"general"`
	Provider  ProviderConfig  `json:"provider"`
	Corpus    CorpusConfig    `json:"corpus"`
	Store     StoreConfig     `json:"store"`
	Retrieval RetrievalConfig `json:"retrieval"`
	Feedback  FeedbackConfig  `json:"feedback"`
	Channels  ChannelsConfig  `json:"channels"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"` // "debug" | "info" | "warn" | "error"
}

// ProviderConfig configures the OpenAI-compatible embedding and chat
// provider. APIKey is the one required secret; it normally arrives via
// ${OPENAI_API_KEY} expansion from the local env file.
type ProviderConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase,omitempty"`
	ChatModel      string `json:"chatModel,omitempty"`
	EmbeddingModel string `json:"embeddingModel,omitempty"`
	MaxTokens      int    `json:"maxTokens,omitempty"`
}

// CorpusConfig locates the ingestion inputs.
type CorpusConfig struct {
	PDFDir            string `json:"pdfDir"`
	LinksPath         string `json:"linksPath"`
	ManifestPath      string `json:"manifestPath"`
	AbbreviationsPath string `json:"abbreviationsPath"`
}

// StoreConfig configures the similarity-searchable chunk store.
type StoreConfig struct {
	Path string `json:"path"`
}

// RetrievalConfig holds the two relevance thresholds. ScoreThreshold
// decides whether any answer exists at all; ContextThreshold, deliberately
// looser, decides which retrieved chunks enter the prompt context.
type RetrievalConfig struct {
	TopK             int     `json:"topK"`
	ScoreThreshold   float64 `json:"scoreThreshold"`
	ContextThreshold float64 `json:"contextThreshold"`
}

// FeedbackConfig configures the per-session feedback log.
type FeedbackConfig struct {
	Dir string `json:"dir"`
}

type ChannelsConfig struct {
	CLI      CLIConfig      `json:"cli"`
	Telegram TelegramConfig `json:"telegram"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token,omitempty"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

// DefaultConfigPath returns the default config file location, relative to
// the working directory like the rest of the corpus layout.
func DefaultConfigPath() string {
	return filepath.Join("config", "config.json")
}

// Load reads and validates the configuration. A `.env` file next to the
// config file is loaded into the process environment first, so that
// ${VAR} references in the config resolve against it.
func Load(path string) (*Config, error) {
	if err := LoadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is
// unset or empty. Unresolvable references are left as-is so Validate can
// report them.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Validate checks that the config has valid values. A missing provider API
// key is fatal here: the process must not start without it.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Provider.APIKey == "" || strings.HasPrefix(cfg.Provider.APIKey, "${") {
		errs = append(errs, "provider.apiKey is required (set OPENAI_API_KEY in config/.env)")
	}
	if cfg.Provider.MaxTokens < 1 {
		errs = append(errs, "provider.maxTokens must be >= 1")
	}
	if cfg.Retrieval.TopK < 1 {
		errs = append(errs, "retrieval.topK must be >= 1")
	}
	if cfg.Retrieval.ScoreThreshold < 0 || cfg.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, "retrieval.scoreThreshold must be between 0 and 1")
	}
	if cfg.Retrieval.ContextThreshold < 0 || cfg.Retrieval.ContextThreshold > cfg.Retrieval.ScoreThreshold {
		errs = append(errs, "retrieval.contextThreshold must be between 0 and retrieval.scoreThreshold")
	}
	if cfg.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if cfg.Feedback.Dir == "" {
		errs = append(errs, "feedback.dir is required")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
