package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adminkit",
		Short: "Configuration-driven admin API for existing REST backends",
		Long: `adminkit serves CRUD admin endpoints for the resources described in its
configuration, translating every call into requests against your backend.

Quick start:
  adminkit validate   # Check the configuration
  adminkit resources  # Show the resolved backend endpoints
  adminkit serve      # Start the admin server

Playground:
  adminkit demo       # Run the demo users backend standalone`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "adminkit.yaml", "config file path")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newResourcesCmd(),
		newDemoCmd(),
		newTokenCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadEnvFile loads path into the environment. A missing file is not an
// error; variables already set are kept.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
