package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/adminkit/config"
	"github.com/artpar/adminkit/core/convention"
	"github.com/artpar/adminkit/core/formatter"
	"github.com/artpar/adminkit/core/resource"
)

var resourceColumns = []string{"resource", "action", "method", "path"}

func newResourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Show the backend endpoint behind every resource action",
		Long: `Print the resolved method and path for each configured resource and
action. Actions without an endpoint are shown with a dash.

Examples:
  adminkit resources
  adminkit resources --config staging.yaml
  adminkit resources -o json`,
		RunE: runResources,
	}

	cmd.Flags().StringP("output", "o", "table", fmt.Sprintf("output format %v", formatter.List()))
	cmd.Flags().Bool("no-header", false, "omit the header row (table output)")
	return cmd
}

func runResources(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	noHeader, _ := cmd.Flags().GetBool("no-header")

	f, err := formatter.Lookup(output)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	reg, err := cfg.BuildRegistry()
	if err != nil {
		return err
	}

	var records []map[string]any
	for _, res := range reg.List() {
		endpoints, _ := convention.ResolveAll(res)
		for _, action := range resource.Actions() {
			rec := map[string]any{
				"resource": res.Name,
				"action":   string(action),
				"method":   nil,
				"path":     nil,
			}
			if ep, ok := endpoints[action]; ok {
				rec["method"] = ep.Method
				rec["path"] = ep.Path
			}
			records = append(records, rec)
		}
	}

	return f.FormatList(cmd.OutOrStdout(), resourceColumns, records, formatter.FormatOptions{NoHeader: noHeader})
}
