package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/questline/calsync/internal/logging"
	"github.com/questline/calsync/internal/store"
)

func newStatusCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the connection's mode, calendars and last sync time",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			conn, err := store.NewConnectionStore(a.db).Get(cmd.Context(), userID, a.provider.Name())
			if err != nil {
				return err
			}
			if conn == nil {
				fmt.Printf("No %s connection for user %s\n", a.provider.Name(), userID)
				return nil
			}

			lastSynced := "never"
			if conn.LastSyncedAt != nil {
				lastSynced = conn.LastSyncedAt.Format(time.RFC3339)
			}
			fmt.Printf("Provider:     %s\n", conn.Provider)
			fmt.Printf("Mode:         %s\n", conn.DestinationMode)
			fmt.Printf("Calendars:    %s\n", strings.Join(conn.SelectedCalendars, ", "))
			fmt.Printf("Access token: %s\n", logging.SanitizeToken(conn.AccessToken))
			fmt.Printf("Token expiry: %s\n", conn.TokenExpiry.Format(time.RFC3339))
			fmt.Printf("Last synced:  %s\n", lastSynced)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User the connection belongs to")
	return cmd
}
