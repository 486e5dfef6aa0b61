package main

import (
	"os"

	"go-clinic-scheduler/cmd/bootstrap"
	"go-clinic-scheduler/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clinic-scheduler",
		Short:         "Clinic appointment scheduler",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".env", "path to the .env configuration file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Errorf("Failed to initialize application: %v", err)
		return err
	}

	app.Run()
	return nil
}

// loadConfig reads and validates configuration and builds the logger from it.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := bootstrap.NewLogger(cfg.App.LogLevel)
	if !cfg.IsProduction() {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return nil, nil, err
	}
	log.Info("Configuration loaded successfully")
	return cfg, log, nil
}
