package cmd

import (
	"fmt"
	"os"
	"time"

	"abo/internal/config"
	"abo/internal/logger"
	"abo/pkg/models"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// appConfig is set by Execute. Commands that need the database refuse to
// run without it.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "abo",
	Short: "Abo CLI - Billing for magazine subscriptions",
	Long: `Abo CLI manages magazine subscription contracts: it creates invoices
for accounting periods, books incoming payments from bank statements and
exports invoices and addresses.

Contracts are identified by their 8-character reference code, which
customers quote on their bank transfers.

Configuration is read from the environment (or a .env file):
  ABO_DATABASE_PATH   - SQLite database file (default: abo.db)
  ABO_MATURITY_DAYS   - Days between issue and maturity date (default: 14)
  BATCH_WORKERS       - Parallel workers for invoice-batch (default: 4)
  REDIS_URL           - Optional, shares contract locks between processes
  RABBITMQ_URL        - Optional, publishes invoice and payment events
  GOOGLE_SHEET_URL    - Optional, enables the Google Sheets plugins
  ABO_PLUGIN_MANIFEST - Optional, JSON file listing the enabled plugins`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Abo CLI executed")

		fmt.Println("Welcome to Abo CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	appConfig = cfg

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		logger.Close()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database file (overrides ABO_DATABASE_PATH)")
	rootCmd.PersistentFlags().Int("timeout", 600, "Timeout in seconds")
}

// commandConfig returns the loaded configuration with command line
// overrides applied.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded, check the environment variables")
	}
	cfg := *appConfig
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}
	return &cfg, nil
}

func commandTimeout(cmd *cobra.Command) time.Duration {
	secs, _ := cmd.Flags().GetInt("timeout")
	if secs <= 0 {
		secs = 600
	}
	return time.Duration(secs) * time.Second
}

func loggerFor(component string) zerolog.Logger {
	return logger.WithComponent(component)
}

// dateFlag parses an optional YYYY-MM-DD flag. An empty flag yields the
// zero time.
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return time.Time{}, nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD): %w", name, value, err)
	}
	return date, nil
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case "success":
		return "✅"
	case "warning":
		return "⚠️"
	case "skipped":
		return "⏭️"
	case "error":
		return "❌"
	default:
		return "❓"
	}
}
