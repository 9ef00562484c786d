package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codeimpact/internal/config"
	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/output"
)

var (
	analyzeFormat  string
	analyzeQuiet   bool
	analyzeExplain bool
	analyzeSave    bool
	analyzeExport  bool
	analyzeNoCache bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <root>",
	Short: "Parse a codebase and build its dependency graph",
	Long: `Walk a local directory (or clone a git URL), extract entities and
relationships from every Python and JavaScript unit, resolve symbolic
targets and build the weighted dependency graph.

Examples:
  cimpact analyze .
  cimpact analyze ./service --save
  cimpact analyze https://github.com/pallets/flask --export
  cimpact analyze . --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "Output format: text, json or yaml")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "One-line summary")
	analyzeCmd.Flags().BoolVar(&analyzeExplain, "explain", false, "Include resolution details")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist the result as a snapshot")
	analyzeCmd.Flags().BoolVar(&analyzeExport, "export", false, "Export the graph to Neo4j")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Ignore the unit cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if res := cfg.Validate(config.ValidationContextAnalyze); res.HasErrors() {
		return res.Err()
	}
	formatter, err := output.NewFormatter(analyzeFormat, verbosityFor(analyzeQuiet, analyzeExplain))
	if err != nil {
		return err
	}

	result, err := analyzeRoot(ctx, args[0], !analyzeNoCache)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	g, err := graph.Build(result.Entities, result.Relationships, graphWeights(cfg))
	if err != nil {
		return fmt.Errorf("graph build failed: %w", err)
	}
	report := output.NewAnalysisReport(result, g)

	if analyzeSave {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		meta, err := store.SaveSnapshot(ctx, result.Root, result.Entities, result.Relationships)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		report.Snapshot = meta
	}

	if analyzeExport {
		stats, err := exportGraph(ctx, result.Entities, result.Relationships)
		if err != nil {
			return fmt.Errorf("graph export failed: %w", err)
		}
		report.Export = stats
	}

	return formatter.FormatAnalysis(report, cmd.OutOrStdout())
}
