package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/adminkit/bootstrap"
	"github.com/artpar/adminkit/config"
)

func newServeCmd() *cobra.Command {
	var hotReload bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the admin server",
		Long: `Start the adminkit server.

The server will:
  - Load configuration from adminkit.yaml (or --config)
  - Or load configuration from ADMINKIT_* environment variables
  - Mount the admin API under server.base_path
  - Reload resources on SIGHUP, and on file changes with --hot-reload

Environment variables (for Docker deployments):
  ADMINKIT_BACKEND_URL       - Backend base URL (required)
  ADMINKIT_SERVER_PORT       - Server port (default: 8080)
  ADMINKIT_SERVER_BASE_PATH  - Admin API mount point (default: /admin)
  ADMINKIT_AUTH_MODE         - Auth mode: none, token, jwt, remote
  ADMINKIT_AUTH_TOKEN_HASH   - bcrypt hash of the admin token
  ADMINKIT_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  adminkit serve
  adminkit serve --config /etc/adminkit/adminkit.yaml
  adminkit serve --hot-reload=false

  # Docker (env vars only):
  ADMINKIT_BACKEND_URL=https://api.example.com adminkit serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, hotReload)
		},
	}

	cmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload resources when the config file changes")
	return cmd
}

func runServe(cmd *cobra.Command, hotReload bool) error {
	if _, err := os.Stat(cfgFile); err != nil && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s (see adminkit.example.yaml)\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set ADMINKIT_BACKEND_URL environment variable")
		return fmt.Errorf("no configuration")
	}

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath: cfgFile,
		Watch:      hotReload,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context())
}
