package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/adminkit/bootstrap"
)

func newDemoCmd() *cobra.Command {
	var opts bootstrap.DemoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo users backend standalone",
		Long: `Serve the playground users API from SQLite, seeded with three users.
Point an adminkit instance at it to try every resource operation.

Routes (under --path):
  GET    /users        list; page, limit, sort, order, search, role
  POST   /users        create; role defaults to "user"
  GET    /users/{id}   show
  PUT    /users/{id}   replace
  PATCH  /users/{id}   update supplied fields
  DELETE /users/{id}   delete

Examples:
  adminkit demo
  adminkit demo --addr :9000 --dsn demo.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.NewDemo(opts)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8090", "listen address")
	cmd.Flags().StringVar(&opts.DSN, "dsn", bootstrap.DefaultDemoDSN, "SQLite database path")
	cmd.Flags().StringVar(&opts.Path, "path", bootstrap.DefaultDemoPath, "mount point")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "console", "log format: json or console")
	return cmd
}
