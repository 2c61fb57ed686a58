package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/adminkit/config"
	"github.com/artpar/adminkit/core/convention"
	"github.com/artpar/adminkit/core/registry"
)

func newValidateCmd() *cobra.Command {
	var checkBackend bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration before deployment",
		Long: `Validate the adminkit configuration.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Every resource description normalizes
  - Backend is reachable (optional)

Exits non-zero when any resource is rejected.

Examples:
  adminkit validate
  adminkit validate --config /etc/adminkit/adminkit.yaml --check-backend`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, checkBackend)
		},
	}

	cmd.Flags().BoolVar(&checkBackend, "check-backend", false, "check if the backend is reachable")
	return cmd
}

func runValidate(cmd *cobra.Command, checkBackend bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	fmt.Fprintf(out, "  %s Backend: %s\n", checkMark, cfg.Backend.URL)
	fmt.Fprintf(out, "  %s Auth mode: %s\n", checkMark, cfg.Auth.Mode)
	fmt.Fprintf(out, "  %s Base path: %s\n", checkMark, displayPath(cfg.Server.BasePath))

	reg, err := cfg.BuildRegistry()
	rejected := map[int]error{}
	var setupErr *registry.SetupError
	if errors.As(err, &setupErr) {
		for _, f := range setupErr.Failures {
			rejected[f.Index] = f.Err
		}
	}

	fmt.Fprintf(out, "\nResources (%d):\n", len(cfg.Resources))
	for i, res := range cfg.Resources {
		name := res.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if rerr, ok := rejected[i]; ok {
			fmt.Fprintf(out, "  %s %s\n      %v\n", crossMark, name, rerr)
			continue
		}

		fmt.Fprintf(out, "  %s %s\n", checkMark, name)
		if normalized, ok := reg.Get(res.Name); ok {
			_, unresolved := convention.ResolveAll(normalized)
			for _, uerr := range unresolved {
				fmt.Fprintf(out, "      warning: %v\n", uerr)
			}
		}
	}

	if checkBackend {
		if err := checkBackendReachable(cmd.Context(), cfg.Backend.URL); err != nil {
			fmt.Fprintf(out, "\n  %s Backend reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "\n  %s Backend reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	if len(rejected) > 0 {
		return fmt.Errorf("%d of %d resources rejected", len(rejected), len(cfg.Resources))
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkBackendReachable(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
