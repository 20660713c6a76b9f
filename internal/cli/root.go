package cli

import (
	"fmt"
	"os"
	"time"

	"hive/config"
	"hive/internal/database"
	"hive/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "The Hive time-bank server",
	Long: `hive runs the time-bank API: members trade services measured in hours,
with credit held while an exchange is open and transferred when both sides confirm.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("HIVE_CONFIG", configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a TOML config file (overrides HIVE_CONFIG)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	log := logger.NewWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})
	return cfg, log, nil
}

// openDB connects and migrates. Every command that touches data goes through it.
func openDB(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
