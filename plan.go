package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/timeline"
)

var (
	planKey  string
	planUndo bool
	planDay  string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect and update stored plans",
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plan keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		keys, err := st.Keys(context.Background())
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the tasks of a plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		plan, err := st.LoadPlan(context.Background(), planKey)
		if err != nil {
			return err
		}

		if planDay != "" {
			day, err := time.Parse(model.DateLayout, planDay)
			if err != nil {
				return fmt.Errorf("--day must be YYYY-MM-DD: %w", err)
			}
			printDay(cmd, plan.Tasks, day, timeline.Options{SlotHeight: cfg.Timeline.SlotHeight, MinHeight: cfg.Timeline.MinHeight})
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDONE\tSTART\tEND\tTITLE")
		for _, t := range plan.Tasks {
			done := ""
			if t.Completed {
				done = "x"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, done, t.StartDate, t.EndDate, t.Title)
		}
		return w.Flush()
	},
}

func printDay(cmd *cobra.Command, tasks []model.Task, day time.Time, opts timeline.Options) {
	blocks := timeline.ForDay(tasks, day, opts)
	hours := timeline.HourLabels()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", day.Format("Monday, 2006-01-02"))
	if len(blocks) == 0 {
		fmt.Fprintln(out, "  no tasks")
		return
	}
	for _, b := range blocks {
		mark := " "
		if b.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "  %4s [%s] %s-%s %s\n", hours[b.StartMinutes/60], mark, b.Start, b.End, b.Title)
	}
}

var planToggleCmd = &cobra.Command{
	Use:   "toggle <task-id>",
	Short: "Mark a task completed (or not, with --undo)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		taskID := strings.TrimSpace(args[0])
		if _, err := st.SetCompleted(context.Background(), planKey, taskID, !planUndo); err != nil {
			return err
		}
		state := "completed"
		if planUndo {
			state = "pending"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Task %s marked %s\n", taskID, state)
		return nil
	},
}

func init() {
	planCmd.PersistentFlags().StringVar(&planKey, "plan", model.DefaultPlanKey, "plan key")
	planShowCmd.Flags().StringVar(&planDay, "day", "", "show the timeline of one day (YYYY-MM-DD)")
	planToggleCmd.Flags().BoolVar(&planUndo, "undo", false, "mark the task pending again")

	planCmd.AddCommand(planListCmd, planShowCmd, planToggleCmd)
	rootCmd.AddCommand(planCmd)
}
