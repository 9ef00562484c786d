package ingestion

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

// AnalyzerConfig holds configuration for codebase analysis
type AnalyzerConfig struct {
	Workers     int           // Number of concurrent parsers (default: 8)
	UnitTimeout time.Duration // Per-unit parsing timeout (default: 30s)
	Walk        WalkOptions
}

// DefaultAnalyzerConfig returns default configuration
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		Workers:     8,
		UnitTimeout: 30 * time.Second,
		Walk:        DefaultWalkOptions(),
	}
}

// UnitCache stores per-unit analysis results keyed by content hash
type UnitCache interface {
	Get(hash string) (*treesitter.UnitResult, bool, error)
	Put(result *treesitter.UnitResult) error
}

// Diagnostic is a non-fatal problem with one source unit
type Diagnostic struct {
	Path string
	Err  error
}

func (d Diagnostic) Error() string {
	return d.Path + ": " + d.Err.Error()
}

// AnalysisStats summarizes one analysis pass
type AnalysisStats struct {
	Files         FileStats
	UnitsParsed   int
	UnitsFailed   int
	CacheHits     int
	Entities      int
	Relationships int
	ByKind        map[models.EntityKind]int
}

// AnalysisResult is the finalized, resolved output of one pass
type AnalysisResult struct {
	Root          string
	Entities      []models.CodeEntity
	Relationships []models.Relationship
	Diagnostics   []Diagnostic
	Stats         AnalysisStats
	Resolution    ResolutionStats
	Duration      time.Duration
}

// Analyzer orchestrates: walk → parse units in parallel → resolve
type Analyzer struct {
	config *AnalyzerConfig
	cache  UnitCache
	logger *logrus.Logger
}

// NewAnalyzer creates a codebase analyzer. cache and logger may be nil.
func NewAnalyzer(config *AnalyzerConfig, cache UnitCache, logger *logrus.Logger) *Analyzer {
	if config == nil {
		config = DefaultAnalyzerConfig()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Analyzer{
		config: config,
		cache:  cache,
		logger: logger,
	}
}

type unitOutcome struct {
	result   *treesitter.UnitResult
	err      error
	cacheHit bool
}

// AnalyzeCodebase analyzes every eligible unit under root. Unit failures
// become diagnostics; only cancellation or a walk error aborts the pass.
func (a *Analyzer) AnalyzeCodebase(ctx context.Context, root string) (*AnalysisResult, error) {
	start := time.Now()

	a.logger.WithFields(logrus.Fields{
		"root":    root,
		"workers": a.config.Workers,
	}).Info("starting codebase analysis")

	files, fileStats, err := WalkSourceFiles(ctx, root, a.config.Walk)
	if err != nil {
		return nil, errors.FileSystemError(err, "walk source tree").WithContext("root", root)
	}

	outcomes, err := a.analyzeUnitsParallel(ctx, files)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		Root: root,
		Stats: AnalysisStats{
			Files:  *fileStats,
			ByKind: make(map[models.EntityKind]int),
		},
	}

	// Merge in walk order so output does not depend on scheduling
	for i, outcome := range outcomes {
		if outcome.err != nil {
			diag := Diagnostic{Path: files[i].RelPath, Err: errors.ParseError(outcome.err, files[i].RelPath)}
			result.Diagnostics = append(result.Diagnostics, diag)
			result.Stats.UnitsFailed++
			a.logger.WithError(outcome.err).WithField("path", files[i].RelPath).Warn("skipping unit")
			continue
		}
		result.Stats.UnitsParsed++
		if outcome.cacheHit {
			result.Stats.CacheHits++
		}
		result.Entities = append(result.Entities, outcome.result.Entities...)
		result.Relationships = append(result.Relationships, outcome.result.Relationships...)
	}

	result.Resolution = Resolve(result.Entities, result.Relationships)

	for _, e := range result.Entities {
		result.Stats.ByKind[e.Kind]++
	}
	result.Stats.Entities = len(result.Entities)
	result.Stats.Relationships = len(result.Relationships)
	result.Duration = time.Since(start)

	a.logger.WithFields(logrus.Fields{
		"units":      result.Stats.UnitsParsed,
		"failed":     result.Stats.UnitsFailed,
		"cache_hits": result.Stats.CacheHits,
		"entities":   result.Stats.Entities,
		"resolved":   result.Resolution.Resolved,
		"unresolved": result.Resolution.Unresolved,
		"duration":   result.Duration,
	}).Info("codebase analysis complete")

	return result, nil
}

// analyzeUnitsParallel parses files with a bounded errgroup. Outcomes are
// stored by index; the group only fails on cancellation of ctx.
func (a *Analyzer) analyzeUnitsParallel(ctx context.Context, files []SourceFile) ([]unitOutcome, error) {
	outcomes := make([]unitOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = a.analyzeUnit(gctx, file)
			if outcomes[i].err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (a *Analyzer) analyzeUnit(ctx context.Context, file SourceFile) unitOutcome {
	code, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return unitOutcome{err: err}
	}

	hash := treesitter.ContentHash(file.RelPath, code)
	if a.cache != nil {
		cached, ok, err := a.cache.Get(hash)
		if err != nil {
			a.logger.WithError(err).WithField("path", file.RelPath).Debug("unit cache read failed")
		} else if ok {
			return unitOutcome{result: cached, cacheHit: true}
		}
	}

	unitCtx := ctx
	if a.config.UnitTimeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(ctx, a.config.UnitTimeout)
		defer cancel()
	}

	result, err := treesitter.AnalyzeSource(unitCtx, file.RelPath, code)
	if err != nil {
		return unitOutcome{err: err}
	}

	a.logger.WithFields(logrus.Fields{
		"path":     file.RelPath,
		"entities": len(result.Entities),
	}).Debug("unit analyzed")

	if a.cache != nil {
		if err := a.cache.Put(result); err != nil {
			a.logger.WithError(err).WithField("path", file.RelPath).Debug("unit cache write failed")
		}
	}
	return unitOutcome{result: result}
}
