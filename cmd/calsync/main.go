package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/questline/calsync/internal/config"
	"github.com/questline/calsync/internal/logging"
	"github.com/questline/calsync/internal/provider/google"
	"github.com/questline/calsync/internal/store"
)

var (
	configFile            string
	dbPathFlag            string
	googleCredentialsPath string
	timezoneFlag          string
	verbose               bool
)

var rootCmd = &cobra.Command{
	Use:   "calsync",
	Short: "Sync Google Calendar events into tasks and schedule entries",
	Long: `calsync imports events from selected Google Calendars into internal
tasks and schedule entries. Repeated runs are idempotent: events already
imported are skipped unless they changed upstream, and a user's local edits
(priority, completion) are never overwritten.

The OAuth consent flow happens outside this tool; 'calsync connect' stores
an access/refresh token pair obtained elsewhere.`,
	SilenceUsage: true,
}

// app bundles everything a command needs after setup.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	provider *google.Provider
	log      *slog.Logger
}

func setup() (*app, error) {
	cfg, err := config.LoadConfig(configFile, dbPathFlag, googleCredentialsPath, timezoneFlag)
	if err != nil {
		return nil, err
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		db:       db,
		provider: google.NewProvider(clientID, clientSecret),
		log:      logging.New(verbose),
	}, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Path to the SQLite database (overrides config file and CALSYNC_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&googleCredentialsPath, "google-credentials-path", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH)")
	rootCmd.PersistentFlags().StringVar(&timezoneFlag, "timezone", "", "IANA timezone for event normalization (overrides config file and CALSYNC_TIMEZONE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newDisconnectCmd())
	rootCmd.AddCommand(newCalendarsCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
