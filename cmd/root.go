package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/psds-microservice/casework-service/internal/config"
	"github.com/psds-microservice/casework-service/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "casework-service"

var rootCmd = &cobra.Command{
	Use:           serviceName,
	Short:         "Casework API: applications, chats, tickets and visits for agents",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig reads .env files (repo root or bin/), the environment, and
// builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}
