// Kestrel - Claims payment-integrity review from the command line.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// flags shared by every command.
var flags struct {
	configPath    string
	referencePath string
	logLevel      string
	logFormat     string
}

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Rule-based claims payment-integrity reviewer",
	Long: "Reviews outlier claims, DRG assignments, medical necessity and readmissions\n" +
		"against built-in and custom CEL rules, over JSON collections on disk.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kestrel %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", os.Getenv("KESTREL_CONFIG"), "Path to a config file (or set KESTREL_CONFIG)")
	pf.StringVar(&flags.referencePath, "reference", "", "Path to a reference YAML file; overrides referencePath")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: json or text")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
