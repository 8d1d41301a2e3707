package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// GoogleCredentials represents the structure of a Google OAuth credentials
// JSON file as downloaded from the Google Cloud Console.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth client credentials from a JSON
// file, accepting either an "installed" or a "web" section.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for the calendar sync engine.
type Config struct {
	DBPath                string `json:"db_path,omitempty"`
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	DefaultTimezone       string `json:"default_timezone,omitempty"`
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadConfig loads configuration with the following precedence (highest to
// lowest): command-line flags, environment variables, config file, defaults.
func LoadConfig(configFile, dbPathFlag, googleCredentialsPathFlag, timezoneFlag string) (*Config, error) {
	var config Config

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
	}

	// Step 2: Override with environment variables
	if dbPath := os.Getenv("CALSYNC_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}
	if googleCredentialsPath := os.Getenv("GOOGLE_CREDENTIALS_PATH"); googleCredentialsPath != "" {
		config.GoogleCredentialsPath = googleCredentialsPath
	}
	if timezone := os.Getenv("CALSYNC_TIMEZONE"); timezone != "" {
		config.DefaultTimezone = timezone
	}

	// Step 3: Override with command-line flags (highest priority)
	if dbPathFlag != "" {
		config.DBPath = dbPathFlag
	}
	if googleCredentialsPathFlag != "" {
		config.GoogleCredentialsPath = googleCredentialsPathFlag
	}
	if timezoneFlag != "" {
		config.DefaultTimezone = timezoneFlag
	}

	// Step 4: Apply defaults and validate required fields
	if config.DBPath == "" {
		config.DBPath = "calsync.db"
	}

	if config.DefaultTimezone == "" {
		config.DefaultTimezone = "UTC"
	}

	if config.GoogleCredentialsPath == "" {
		return nil, fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}

	return &config, nil
}
