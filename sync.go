package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/breadoorr/SmartPlan/pkg/colors"
	"github.com/breadoorr/SmartPlan/pkg/gcal"
	"github.com/breadoorr/SmartPlan/pkg/index"
	"github.com/breadoorr/SmartPlan/pkg/model"
	"github.com/breadoorr/SmartPlan/pkg/overdue"
)

var (
	syncPlanKey   string
	syncCalendar  string
	syncSweepOnly bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync a stored plan into Google Calendar",
	Long: `Create or update one calendar event per task of a plan.

Tasks with a start and end time become timed events, the rest all-day events.
Completed tasks are prefixed with ✓ and overdue ones with !. Events of tasks
synced earlier are flagged once their end date passes; --sweep does only that.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		calendarName := cfg.Calendar
		if syncCalendar != "" {
			calendarName = syncCalendar
		}
		ctx := context.Background()

		idx := loadEventIndex()
		cache := loadColorCache()
		pending := loadOverdueTable()

		client, err := gcal.NewClient(ctx, calendarName, idx, cache)
		if err != nil {
			return fmt.Errorf("creating Google Calendar client: %w", err)
		}
		if pending != nil {
			client.TrackOverdue(pending)
		}

		swept, sweepErr := client.SweepOverdue(ctx)
		if swept > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Flagged %d overdue events\n", swept)
		}

		var syncErr error
		if !syncSweepOnly {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			plan, err := st.LoadPlan(ctx, syncPlanKey)
			if err != nil {
				return err
			}
			var synced int
			synced, syncErr = client.SyncPlan(ctx, plan)
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d/%d tasks of %q to calendar %q\n", synced, len(plan.Tasks), plan.Key, calendarName)
		}

		if idx != nil {
			if err := idx.Save(); err != nil {
				log.Printf("Warning: failed to save event index: %v", err)
			}
		}
		if cache != nil {
			if err := cache.Save(); err != nil {
				log.Printf("Warning: failed to save color cache: %v", err)
			}
		}
		if pending != nil {
			if err := pending.Save(); err != nil {
				log.Printf("Warning: failed to save overdue table: %v", err)
			}
		}

		if syncErr != nil {
			return syncErr
		}
		return sweepErr
	},
}

func loadEventIndex() *index.EventIndex {
	path, err := index.DefaultPath()
	if err != nil {
		log.Printf("Warning: failed to initialize event index: %v", err)
		return nil
	}
	idx, err := index.NewEventIndex(path)
	if err != nil {
		log.Printf("Warning: failed to initialize event index: %v", err)
		return nil
	}
	return idx
}

func loadOverdueTable() *overdue.Table {
	path, err := overdue.DefaultPath()
	if err != nil {
		log.Printf("Warning: failed to initialize overdue sweep table: %v", err)
		return nil
	}
	table, err := overdue.NewTable(path)
	if err != nil {
		log.Printf("Warning: failed to initialize overdue sweep table: %v", err)
		return nil
	}
	return table
}

func loadColorCache() *colors.ColorCache {
	path, err := colors.DefaultPath()
	if err == nil {
		var cache *colors.ColorCache
		if cache, err = colors.NewColorCache(path); err == nil {
			return cache
		}
	}
	log.Printf("Warning: could not load color cache: %v", err)
	return nil
}

func init() {
	syncCmd.Flags().StringVar(&syncPlanKey, "plan", model.DefaultPlanKey, "plan key to sync")
	syncCmd.Flags().StringVar(&syncCalendar, "calendar", "", "Google Calendar name to sync with (overrides config)")
	syncCmd.Flags().BoolVar(&syncSweepOnly, "sweep", false, "only flag overdue events of earlier syncs")
	rootCmd.AddCommand(syncCmd)
}
