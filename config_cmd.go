package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API keys masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "port:      %s\n", cfg.Server.Port)
		fmt.Fprintf(out, "provider:  %s\n", cfg.LLM.Provider)
		fmt.Fprintf(out, "gemini:    %s (key %s)\n", cfg.LLM.Gemini.Model, mask(cfg.LLM.Gemini.APIKey))
		fmt.Fprintf(out, "anthropic: %s (key %s)\n", cfg.LLM.Anthropic.Model, mask(cfg.LLM.Anthropic.APIKey))
		fmt.Fprintf(out, "openai:    %s (key %s)\n", cfg.LLM.OpenAI.Model, mask(cfg.LLM.OpenAI.APIKey))
		fmt.Fprintf(out, "timeout:   %s, retries %d\n", cfg.LLM.Timeout, cfg.LLM.MaxRetries)
		fmt.Fprintf(out, "store:     %s\n", cfg.Store.Path)
		fmt.Fprintf(out, "calendar:  %s\n", cfg.Calendar)
		return nil
	},
}

func mask(key string) string {
	if key == "" {
		return "unset"
	}
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

var configSetCalendarCmd = &cobra.Command{
	Use:   "set-calendar <name>",
	Short: "Set the default Google Calendar name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Calendar = args[0]
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default calendar set to: %s\n", args[0])
		return nil
	},
}

var configSetProviderCmd = &cobra.Command{
	Use:       "set-provider <gemini|anthropic|openai>",
	Short:     "Set the default LLM provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"gemini", "anthropic", "openai"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.ToLower(args[0])
		switch name {
		case "gemini", "anthropic", "openai":
		default:
			return fmt.Errorf("unknown provider %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.LLM.Provider = name
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default provider set to: %s\n", name)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCalendarCmd, configSetProviderCmd)
	rootCmd.AddCommand(configCmd)
}
