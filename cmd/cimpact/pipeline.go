package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codeimpact/internal/cache"
	"github.com/rohankatakam/codeimpact/internal/config"
	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/impact"
	"github.com/rohankatakam/codeimpact/internal/ingestion"
	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/output"
	"github.com/rohankatakam/codeimpact/internal/storage"
)

// analyzerConfig maps the analysis section onto ingestion options
func analyzerConfig(c *config.Config) *ingestion.AnalyzerConfig {
	ac := ingestion.DefaultAnalyzerConfig()
	if c.Analysis.Workers > 0 {
		ac.Workers = c.Analysis.Workers
	}
	if c.Analysis.UnitTimeout > 0 {
		ac.UnitTimeout = c.Analysis.UnitTimeout
	}
	ac.Walk.Extensions = c.Analysis.Extensions
	if len(c.Analysis.IgnoreDirs) > 0 {
		ac.Walk.IgnoreDirs = c.Analysis.IgnoreDirs
	}
	ac.Walk.IgnorePatterns = c.Analysis.IgnorePatterns
	return ac
}

func graphWeights(c *config.Config) graph.WeightTable {
	return graph.DefaultWeights().WithOverrides(c.Impact.Weights)
}

func impactParams(c *config.Config) impact.Params {
	return impact.Params{
		DecayFactor: c.Impact.DecayFactor,
		Threshold:   c.Impact.Threshold,
		TopK:        c.Impact.TopK,
		TopPaths:    c.Impact.TopPaths,
	}
}

// verbosityFor picks the text verbosity from the command flags
func verbosityFor(quiet, explain bool) output.VerbosityLevel {
	switch {
	case explain:
		return output.VerbosityExplain
	case quiet:
		return output.VerbosityQuiet
	default:
		return output.GetDefaultVerbosity()
	}
}

// analyzeRoot clones remote targets and analyzes the local tree. The unit
// cache is opened only for the duration of the pass.
func analyzeRoot(ctx context.Context, target string, useCache bool) (*ingestion.AnalysisResult, error) {
	root, err := ingestion.PrepareRoot(ctx, target, cfg.Analysis.CloneDir)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	var unitCache ingestion.UnitCache
	if useCache && cfg.Analysis.CachePath != "" {
		bc, err := cache.Open(cfg.Analysis.CachePath, logger)
		if err != nil {
			logger.WithError(err).Warn("Unit cache unavailable, parsing every unit")
		} else {
			defer bc.Close()
			unitCache = bc
		}
	}

	analyzer := ingestion.NewAnalyzer(analyzerConfig(cfg), unitCache, logger)
	return analyzer.AnalyzeCodebase(ctx, root)
}

func openStore() (storage.SnapshotStore, error) {
	if res := cfg.Validate(config.ValidationContextStorage); res.HasErrors() {
		return nil, res.Err()
	}
	return storage.NewSQLStore(cfg.Storage.Type, cfg.StorageDSN(), logger)
}

// openBackend connects to the configured Neo4j database
func openBackend(ctx context.Context, entityCount int) (*graph.Neo4jBackend, error) {
	if res := cfg.Validate(config.ValidationContextExport); res.HasErrors() {
		return nil, res.Err()
	}

	batch := graph.BatchConfigForEntities(entityCount)
	if cfg.Neo4j.BatchSize > 0 {
		batch = graph.BatchConfig{NodeBatchSize: cfg.Neo4j.BatchSize, EdgeBatchSize: cfg.Neo4j.BatchSize * 5}
	}
	return graph.NewNeo4jBackend(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, batch)
}

// exportGraph writes the analysis to Neo4j
func exportGraph(ctx context.Context, entities []models.CodeEntity, relationships []models.Relationship) (*graph.ExportStats, error) {
	backend, err := openBackend(ctx, len(entities))
	if err != nil {
		return nil, err
	}
	defer backend.Close(ctx)

	return graph.NewExporter(backend, logger).Export(ctx, entities, relationships)
}

// reportExportDrift compares the reach of id in g with the exported graph
// and warns on w when they disagree
func reportExportDrift(ctx context.Context, w io.Writer, backend graph.Backend, g *graph.DependencyGraph, id string, hops int) error {
	diff, err := graph.VerifyReachability(ctx, backend, g, id, hops)
	if err != nil {
		return fmt.Errorf("export check for %s failed: %w", id, err)
	}
	if diff.InSync() {
		logger.WithFields(logrus.Fields{"entity": id, "hops": diff.Hops, "reachable": diff.Local}).
			Debug("Exported graph matches")
		return nil
	}
	fmt.Fprintf(w, "⚠️  Exported graph is out of date for %s: %d missing, %d extra within %d hops (re-run analyze --export)\n",
		id, len(diff.Missing), len(diff.Extra), diff.Hops)
	return nil
}

// findEntity resolves a user query to one entity. It tries, in order, the
// entity ID, the qualified name, "path::name" and the bare name.
func findEntity(entities []models.CodeEntity, query string) (models.CodeEntity, error) {
	matchers := []func(e models.CodeEntity) bool{
		func(e models.CodeEntity) bool { return e.ID == query },
		func(e models.CodeEntity) bool { return e.QualifiedName == query },
		func(e models.CodeEntity) bool { return e.FilePath+"::"+e.Name == query },
		func(e models.CodeEntity) bool { return e.Name == query },
	}

	for _, match := range matchers {
		var found []models.CodeEntity
		for _, e := range entities {
			if match(e) {
				found = append(found, e)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			ids := make([]string, len(found))
			for i, e := range found {
				ids[i] = e.ID
			}
			sort.Strings(ids)
			if len(ids) > 5 {
				ids = append(ids[:5], "...")
			}
			return models.CodeEntity{}, errors.ValidationErrorf("%q is ambiguous (%d matches): %s",
				query, len(found), strings.Join(ids, ", "))
		}
	}
	return models.CodeEntity{}, errors.NotFoundErrorf("no entity matches %q", query)
}
