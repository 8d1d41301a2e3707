package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/questline/calsync/internal/store"
)

func newConnectCmd() *cobra.Command {
	var (
		userID       string
		accessToken  string
		refreshToken string
		expiresIn    int
		calendars    []string
		mode         string
		questID      string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Create or update a calendar connection from an existing token pair",
		Long: `Store an access/refresh token pair obtained from the OAuth consent flow
and select the calendars to sync. Running connect again updates the existing
connection; an empty --refresh-token never overwrites a stored one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch store.DestinationMode(mode) {
			case store.ModeTasks, store.ModeSchedule, store.ModeSmart:
			default:
				return fmt.Errorf("invalid --mode %q (expected tasks, schedule or smart)", mode)
			}

			a, err := setup()
			if err != nil {
				return err
			}

			connections := store.NewConnectionStore(a.db)
			ctx := cmd.Context()

			conn, err := connections.Get(ctx, userID, a.provider.Name())
			if err != nil {
				return err
			}
			if conn == nil {
				conn = &store.Connection{
					ID:       uuid.NewString(),
					UserID:   userID,
					Provider: a.provider.Name(),
				}
			}

			conn.AccessToken = accessToken
			if refreshToken != "" {
				conn.RefreshToken = refreshToken
			}
			conn.TokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
			if len(calendars) > 0 {
				conn.SelectedCalendars = store.StringList(calendars)
			}
			conn.DestinationMode = store.DestinationMode(mode)
			if questID != "" {
				conn.DestinationQuestID = questID
			}

			if err := connections.Save(ctx, conn); err != nil {
				return err
			}

			fmt.Printf("Connected %s (%s): %d calendar(s), mode %s\n",
				userID, a.provider.Name(), len(conn.SelectedCalendars), conn.DestinationMode)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User the connection belongs to")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "OAuth access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth refresh token")
	cmd.Flags().IntVar(&expiresIn, "expires-in", 3600, "Access token lifetime in seconds")
	cmd.Flags().StringSliceVar(&calendars, "calendars", nil, "Calendar IDs to sync (comma-separated)")
	cmd.Flags().StringVar(&mode, "mode", string(store.ModeSmart), "Destination mode: tasks, schedule or smart")
	cmd.Flags().StringVar(&questID, "quest-id", "", "Destination quest for imported tasks")
	_ = cmd.MarkFlagRequired("access-token")

	return cmd
}

func newDisconnectCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Delete a calendar connection",
		Long: `Remove the stored connection and its tokens. Imported tasks, schedule
entries and their mappings are left in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			connections := store.NewConnectionStore(a.db)
			if err := connections.Delete(cmd.Context(), userID, a.provider.Name()); err != nil {
				return err
			}

			fmt.Printf("Disconnected %s (%s)\n", userID, a.provider.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User the connection belongs to")
	return cmd
}
