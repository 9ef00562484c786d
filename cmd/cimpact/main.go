package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/codeimpact/internal/config"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cimpact",
	Short: "CodeImpact - change impact analysis for Python and JavaScript codebases",
	Long: `CodeImpact parses a codebase into a typed dependency graph and estimates
how far a change to one entity propagates through it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.WarnLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .codeimpact/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`CodeImpact {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(configCmd)
}
