package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var (
	generateSave string
	generateRaw  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Generate tasks for a project description",
	Long: `Generate a task roadmap and print it as JSON.

The description is taken from the arguments, or from stdin when none are given.
Use --save to store the result as a plan, replacing any previous batch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		if input == "" {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read description: %w", err)
			}
			input = string(b)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		p, err := newPlanner(ctx, cfg)
		if err != nil {
			return err
		}

		if generateRaw {
			raw, err := p.GenerateTasks(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		}

		tasks, err := p.Plan(ctx, input)
		if err != nil {
			return err
		}

		if generateSave != "" {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.SavePlan(ctx, generateSave, tasks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d tasks to plan %q\n", len(tasks), generateSave)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateSave, "save", "", "store the tasks under this plan key")
	generateCmd.Flags().BoolVar(&generateRaw, "raw", false, "print the unparsed model response")
	rootCmd.AddCommand(generateCmd)
}
