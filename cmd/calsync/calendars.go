package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/questline/calsync/internal/store"
	"github.com/questline/calsync/internal/sync"
)

func newCalendarsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars visible to the connected account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			connections := store.NewConnectionStore(a.db)
			conn, err := connections.Get(ctx, userID, a.provider.Name())
			if err != nil {
				return err
			}
			if conn == nil {
				return sync.ErrNoConnection
			}

			token, err := sync.NewTokenManager(connections, a.provider).ValidAccessToken(ctx, conn)
			if err != nil {
				return err
			}

			calendars, err := a.provider.ListCalendars(ctx, token)
			if err != nil {
				return err
			}

			selected := make(map[string]bool, len(conn.SelectedCalendars))
			for _, id := range conn.SelectedCalendars {
				selected[id] = true
			}

			for _, cal := range calendars {
				marker := " "
				if selected[cal.ID] {
					marker = "*"
				}
				primary := ""
				if cal.Primary {
					primary = " (primary)"
				}
				fmt.Printf("%s %s  %s%s\n", marker, cal.ID, cal.Summary, primary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User the connection belongs to")
	return cmd
}
