package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seethefuture888888-creator/kangbo/pkg/config"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	// .env.local wins over .env; neither overrides variables already set.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	rootCmd := &cobra.Command{
		Use:           "kangbo",
		Short:         "Macro x asset dashboard signal service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path (optional)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}
