// Package config loads and persists tableloom configuration. Precedence:
// flags > environment (TABLELOOM_ prefix) > config file > defaults. The API
// credential is read once here and passed into constructors; nothing reads
// the environment at call time.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tableloom/internal/utils"
)

// Global configuration structure.
type Global struct {
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxRows     int    `mapstructure:"max_rows" yaml:"max_rows"`
	SampleRows  int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	PromptRows  int    `mapstructure:"prompt_rows" yaml:"prompt_rows"`

	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// ErrMissingAPIKey reports an absent credential for a provider that needs one.
var ErrMissingAPIKey = errors.New("api key missing: set TABLELOOM_API_KEY or run `tableloom config set api_key <key>`")

// ValidateForQuery checks that the configuration can reach a query engine.
// Called before any server or table machinery is constructed.
func (c *Global) ValidateForQuery() error {
	switch c.Provider {
	case "ollama":
		return nil
	case "openrouter", "":
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
		return nil
	default:
		return fmt.Errorf("unknown provider %q (use openrouter or ollama)", c.Provider)
	}
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.tableloom/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".tableloom")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLELOOM")
	v.AutomaticEnv()

	v.SetDefault("provider", "openrouter")
	v.SetDefault("model", "openai/gpt-4o-mini")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("listen_addr", "127.0.0.1:8384")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("prompt_rows", 20)
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)

	// Viper only binds env vars it has seen; register the keys explicitly
	// so TABLELOOM_API_KEY works without a config file.
	for _, key := range []string{
		"api_key", "provider", "model", "ollama_host", "listen_addr",
		"max_upload_mb", "max_rows", "sample_rows", "prompt_rows",
		"max_tokens", "temperature", "http_timeout_sec",
		"retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".tableloom")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
