package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tableloom/internal/dispatch"
	"github.com/KaramelBytes/tableloom/internal/engine"
	"github.com/KaramelBytes/tableloom/internal/table"
)

var (
	askModel   string
	askMaxRows int
)

var askCmd = &cobra.Command{
	Use:   "ask <file> <question>",
	Short: "Ask a one-shot question about a CSV, TSV, or XLSX file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		if err := cfg.ValidateForQuery(); err != nil {
			return err
		}
		if askModel != "" {
			cfg.Model = askModel
		}
		maxRows := cfg.MaxRows
		if askMaxRows > 0 {
			maxRows = askMaxRows
		}

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		tbl, err := table.ReadFile(args[0], table.ReadOptions{MaxRows: maxRows})
		if err != nil {
			return fmt.Errorf("load %s: %w", args[0], err)
		}

		eng := engine.New(newRuntime(), tbl, nil, engine.Options{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			PromptRows:  cfg.PromptRows,
		})
		result, err := dispatch.New(eng, logger).Dispatch(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if result.IsTable() {
			fmt.Print(result.Table.Text())
			return nil
		}
		fmt.Println(result.Text)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askModel, "model", "", "model to query (overrides config)")
	askCmd.Flags().IntVar(&askMaxRows, "max-rows", 0, "limit rows loaded from the file")
	rootCmd.AddCommand(askCmd)
}
