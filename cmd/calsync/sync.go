package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/questline/calsync/internal/store"
	"github.com/questline/calsync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync and print the result as JSON",
		Long: `Fetch events from the selected calendars and reconcile them against
previously imported tasks and schedule entries. The run completes even when
individual calendars or events fail; those failures are listed in the
result's errors field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			syncer := sync.NewSyncer(
				store.NewConnectionStore(a.db),
				store.NewImportedEventStore(a.db),
				store.NewTaskStore(a.db),
				store.NewScheduleEntryStore(a.db),
				store.NewQuestStore(a.db),
				a.provider,
				a.log,
			)

			result, err := syncer.RunSync(cmd.Context(), userID, a.cfg.DefaultTimezone)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(out))

			if len(result.Errors) > 0 {
				fmt.Fprintf(os.Stderr, "synced with %d warning(s)\n", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User to sync")
	return cmd
}
