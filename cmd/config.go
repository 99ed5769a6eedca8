package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tableloom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tableloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		fmt.Printf("provider: %s\n", providerName())
		fmt.Printf("model: %s\n", cfg.Model)
		fmt.Printf("ollama_host: %s\n", cfg.OllamaHost)
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		fmt.Printf("sample_rows: %d\n", cfg.SampleRows)
		fmt.Printf("prompt_rows: %d\n", cfg.PromptRows)
		fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "api_key":
			cfg.APIKey = val
		case "provider":
			switch val {
			case "openrouter", "OpenRouter", "OPENROUTER":
				cfg.Provider = "openrouter"
			case "ollama", "local", "Ollama", "LOCAL":
				cfg.Provider = "ollama"
			default:
				return fmt.Errorf("invalid provider: %s (use openrouter or ollama)", val)
			}
		case "model":
			cfg.Model = val
		case "ollama_host":
			cfg.OllamaHost = val
		case "listen_addr":
			cfg.ListenAddr = val
		case "max_upload_mb":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid max_upload_mb: %s", val)
			}
			cfg.MaxUploadMB = n
		case "max_rows":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid max_rows: %s", val)
			}
			cfg.MaxRows = n
		case "sample_rows":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid sample_rows: %s", val)
			}
			cfg.SampleRows = n
		case "prompt_rows":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid prompt_rows: %s", val)
			}
			cfg.PromptRows = n
		case "max_tokens":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid max_tokens: %s", val)
			}
			cfg.MaxTokens = n
		case "temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 || f > 2 {
				return fmt.Errorf("invalid temperature: %s", val)
			}
			cfg.Temperature = f
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ Saved %s\n", key)
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
