package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-live/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and realtime feed",
	Long: `Start the HTTP server exposing the audience and host endpoints plus the
websocket and SSE feeds. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	srv, err := server.Open(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(cmd.Context())
}
