// Package main provides the entry point for the live resume review server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-live/internal/config"
	"github.com/jonathan/resume-live/internal/logger"
)

var (
	configFile string
	logDebug   bool
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "live_server",
	Short: "Live resume review server",
	Long: "live_server hosts live resume reviews: the audience rates, reacts, chats and asks questions " +
		"while a shared display aggregates everything for the resume on screen.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default ./live.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&logDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "json", false, "Write logs as JSON")
}

// loadConfig reads .env, the config file and the environment, then builds
// the process logger. Flags override the log settings from config.
func loadConfig() (*config.Config, *zap.Logger, error) {
	config.LoadDotEnv()

	cfg, err := config.Load(config.New(), configFile)
	if err != nil {
		return nil, nil, err
	}
	cfg.Log.Debug = cfg.Log.Debug || logDebug
	cfg.Log.JSON = cfg.Log.JSON || logJSON

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
