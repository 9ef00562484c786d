package output

import (
	"sort"

	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/impact"
	"github.com/rohankatakam/codeimpact/internal/ingestion"
)

// NewImpactReport wraps a result for formatting. topFiles bounds the file
// list of the summary.
func NewImpactReport(root string, result *impact.Result, topFiles int) *ImpactReport {
	report := &ImpactReport{
		Root:    root,
		Summary: impact.Summarize(result, topFiles),
		Result:  result,
	}
	if source, ok := result.Node(result.SourceID); ok {
		report.Source = source
	} else {
		report.Source = impact.ImpactNode{EntityID: result.SourceID}
	}
	return report
}

// NewAnalysisReport converts an analysis result. g may be nil when no graph was built.
func NewAnalysisReport(result *ingestion.AnalysisResult, g *graph.DependencyGraph) *AnalysisReport {
	report := &AnalysisReport{
		Root:           result.Root,
		Files:          result.Stats.Files,
		UnitsParsed:    result.Stats.UnitsParsed,
		UnitsFailed:    result.Stats.UnitsFailed,
		CacheHits:      result.Stats.CacheHits,
		Entities:       result.Stats.Entities,
		EntitiesByKind: make(map[string]int, len(result.Stats.ByKind)),
		Relationships:  result.Stats.Relationships,
		Resolution:     result.Resolution,
		Diagnostics:    make([]string, 0, len(result.Diagnostics)),
		DurationMS:     result.Duration.Milliseconds(),
	}
	for kind, n := range result.Stats.ByKind {
		report.EntitiesByKind[string(kind)] = n
	}
	for _, d := range result.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, d.Error())
	}
	if g != nil {
		stats := g.Stats()
		report.Graph = &stats
	}
	return report
}

// sortedKeys returns map keys in lexical order
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
