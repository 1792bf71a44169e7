package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/breadoorr/SmartPlan/pkg/config"
	"github.com/breadoorr/SmartPlan/pkg/llm"
	"github.com/breadoorr/SmartPlan/pkg/planner"
	"github.com/breadoorr/SmartPlan/pkg/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "smartplan",
	Short: "SmartPlan turns a project description into a dated task roadmap",
	Long: `SmartPlan sends a free-text project description to an LLM in two stages,
structure then generate, and returns the resulting list of dated tasks.

It serves the HTTP API used by the browser UI, stores plans locally and can
sync a plan into Google Calendar.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/smartplan/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load()
	}
	_ = godotenv.Load()
	return config.LoadFromPath(configPath)
}

// saveConfig writes cfg back to the file loadConfig read it from.
func saveConfig(cfg *config.Config) error {
	if configPath == "" {
		return config.Save(cfg)
	}
	return config.SaveToPath(cfg, configPath)
}

func newPlanner(ctx context.Context, cfg *config.Config) (*planner.Planner, error) {
	provider, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("configure llm provider: %w", err)
	}
	return planner.New(provider), nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open plan store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}
