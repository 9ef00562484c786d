package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/codeimpact/internal/config"
	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/impact"
	"github.com/rohankatakam/codeimpact/internal/ingestion"
	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/output"
)

var (
	impactEntities []string
	impactDepth    int
	impactTopFiles int
	impactFormat   string
	impactQuiet    bool
	impactExplain  bool
	impactSnapshot string
	impactLatest   bool
	impactNoCache  bool
	impactVerify   bool
)

var impactCmd = &cobra.Command{
	Use:   "impact [root]",
	Short: "Estimate the impact of changing an entity",
	Long: `Propagate a change from one or more entities through the dependency
graph and report impacted entities, per-file impact, critical paths and
the file impact matrix.

Entities are matched by ID, qualified name, "path::name" or bare name.
The graph comes from a fresh analysis of root, or from a saved snapshot.

Examples:
  cimpact impact . --entity models.py::User.save
  cimpact impact . --entity save --depth 3 --explain
  cimpact impact --snapshot 6f1c... --entity render --format json
  cimpact impact ./service --latest --entity handler --entity render
  cimpact impact . --entity render --verify-export`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImpact,
}

func init() {
	impactCmd.Flags().StringArrayVarP(&impactEntities, "entity", "e", nil, "Entity to change (repeatable)")
	impactCmd.Flags().IntVarP(&impactDepth, "depth", "d", -1, "Maximum propagation depth (default: impact.max_depth)")
	impactCmd.Flags().IntVar(&impactTopFiles, "top-files", 5, "Number of files in the summary")
	impactCmd.Flags().StringVarP(&impactFormat, "format", "f", "text", "Output format: text, json or yaml")
	impactCmd.Flags().BoolVarP(&impactQuiet, "quiet", "q", false, "One-line summary per entity")
	impactCmd.Flags().BoolVar(&impactExplain, "explain", false, "List every impacted entity and the impact matrix")
	impactCmd.Flags().StringVar(&impactSnapshot, "snapshot", "", "Load the graph from a saved snapshot ID")
	impactCmd.Flags().BoolVar(&impactLatest, "latest", false, "Load the graph from the latest snapshot of root")
	impactCmd.Flags().BoolVar(&impactNoCache, "no-cache", false, "Ignore the unit cache")
	impactCmd.Flags().BoolVar(&impactVerify, "verify-export", false, "Warn when the Neo4j export disagrees with the graph")
	impactCmd.MarkFlagRequired("entity")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if res := cfg.Validate(config.ValidationContextImpact); res.HasErrors() {
		return res.Err()
	}
	formatter, err := output.NewFormatter(impactFormat, verbosityFor(impactQuiet, impactExplain))
	if err != nil {
		return err
	}

	depth := impactDepth
	if depth < 0 {
		depth = cfg.Impact.MaxDepth
	}

	root, entities, relationships, err := loadGraphInput(ctx, args)
	if err != nil {
		return err
	}

	g, err := graph.Build(entities, relationships, graphWeights(cfg))
	if err != nil {
		return fmt.Errorf("graph build failed: %w", err)
	}
	engine, err := impact.NewCachedEngine(g, impactParams(cfg), impact.WithCacheSize(cfg.Impact.CacheSize))
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"nodes":      g.NodeCount(),
		"edges":      g.EdgeCount(),
		"generation": g.Generation(),
	}).Debug("Dependency graph ready")

	var backend graph.Backend
	if impactVerify {
		nb, err := openBackend(ctx, len(entities))
		if err != nil {
			return err
		}
		defer nb.Close(ctx)
		backend = nb
	}

	for _, query := range impactEntities {
		entity, err := findEntity(entities, query)
		if err != nil {
			return err
		}
		result, err := engine.Analyze(ctx, entity.ID, depth)
		if err != nil {
			return fmt.Errorf("impact analysis for %s failed: %w", entity.ID, err)
		}

		report := output.NewImpactReport(root, result, impactTopFiles)
		stats := engine.Stats()
		report.Cache = &stats
		if err := formatter.FormatImpact(report, cmd.OutOrStdout()); err != nil {
			return err
		}

		if backend != nil {
			if err := reportExportDrift(ctx, cmd.ErrOrStderr(), backend, g, entity.ID, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadGraphInput returns the entities and relationships for the requested
// graph source: a snapshot by ID, the latest snapshot of root, or a fresh
// analysis of root
func loadGraphInput(ctx context.Context, args []string) (string, []models.CodeEntity, []models.Relationship, error) {
	if impactSnapshot == "" && len(args) == 0 {
		return "", nil, nil, errors.ValidationErrorf("a root directory or --snapshot is required")
	}

	if impactSnapshot != "" || impactLatest {
		store, err := openStore()
		if err != nil {
			return "", nil, nil, err
		}
		defer store.Close()

		if impactSnapshot != "" {
			snap, err := store.LoadSnapshot(ctx, impactSnapshot)
			if err != nil {
				return "", nil, nil, err
			}
			return snap.Metadata.Root, snap.Entities, snap.Relationships, nil
		}

		// a remote root's snapshots are stored under its clone directory
		root, err := ingestion.ResolveRoot(args[0], cfg.Analysis.CloneDir)
		if err != nil {
			return "", nil, nil, err
		}
		snap, err := store.LatestSnapshot(ctx, root)
		if err != nil {
			return "", nil, nil, err
		}
		return snap.Metadata.Root, snap.Entities, snap.Relationships, nil
	}

	result, err := analyzeRoot(ctx, args[0], !impactNoCache)
	if err != nil {
		return "", nil, nil, fmt.Errorf("analysis failed: %w", err)
	}
	for _, d := range result.Diagnostics {
		logger.WithField("path", d.Path).WithError(d.Err).Debug("Unit skipped")
	}
	return result.Root, result.Entities, result.Relationships, nil
}
