package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rohankatakam/codeimpact/internal/impact"
)

// StandardFormatter outputs summary, top files and critical paths (default)
type StandardFormatter struct{}

func (f *StandardFormatter) FormatImpact(report *ImpactReport, w io.Writer) error {
	result := report.Result

	// Header
	fmt.Fprintf(w, "🔍 Change Impact Analysis\n")
	if report.Root != "" {
		fmt.Fprintf(w, "Root: %s\n", report.Root)
	}
	fmt.Fprintf(w, "Source: %s\n", displayName(report.Source))
	fmt.Fprintf(w, "Max depth: %d\n\n", result.MaxDepth)

	if len(result.Nodes) == 0 {
		fmt.Fprintf(w, "Entity %s is not in the dependency graph.\n", result.SourceID)
		return nil
	}

	s := report.Summary
	fmt.Fprintf(w, "Impacted: %d entities in %d files\n", s.TotalImpactedNodes, s.TotalImpactedFiles)
	fmt.Fprintf(w, "Distribution: %d high, %d medium, %d low\n\n",
		s.Distribution.High, s.Distribution.Medium, s.Distribution.Low)

	if len(s.TopFiles) > 0 {
		fmt.Fprintf(w, "Top files:\n")
		for i, file := range s.TopFiles {
			fmt.Fprintf(w, "%d. %s %s %.3f (%d entities)\n",
				i+1, scoreEmoji(file.Score), file.FilePath, file.Score, file.Entities)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.CriticalPaths) > 0 {
		fmt.Fprintf(w, "Critical paths:\n")
		for i, path := range s.CriticalPaths {
			fmt.Fprintf(w, "%d. [%.3f] %s\n", i+1, path.Score, pathNames(result, path))
		}
		fmt.Fprintf(w, "\n")
	}

	if report.Cache != nil {
		fmt.Fprintf(w, "Cache: %d hits, %d misses\n", report.Cache.Hits, report.Cache.Misses)
	}
	return nil
}

func (f *StandardFormatter) FormatAnalysis(report *AnalysisReport, w io.Writer) error {
	fmt.Fprintf(w, "🔍 Codebase Analysis\n")
	fmt.Fprintf(w, "Root: %s\n", report.Root)
	fmt.Fprintf(w, "Duration: %s\n\n", report.Duration())

	fmt.Fprintf(w, "Files: %d (python %d, javascript %d, typescript %d)\n",
		report.Files.Total, report.Files.Python, report.Files.JavaScript, report.Files.TypeScript)
	if report.Files.SkippedGenerated+report.Files.SkippedIgnored > 0 {
		fmt.Fprintf(w, "Skipped: %d generated, %d ignored\n",
			report.Files.SkippedGenerated, report.Files.SkippedIgnored)
	}
	fmt.Fprintf(w, "Units: %d parsed, %d failed, %d from cache\n",
		report.UnitsParsed, report.UnitsFailed, report.CacheHits)

	fmt.Fprintf(w, "Entities: %d\n", report.Entities)
	for _, kind := range sortedKeys(report.EntitiesByKind) {
		fmt.Fprintf(w, "  - %s: %d\n", kind, report.EntitiesByKind[kind])
	}
	fmt.Fprintf(w, "Relationships: %d (%d resolved, %d unresolved)\n",
		report.Relationships, report.Resolution.Resolved, report.Resolution.Unresolved)

	if report.Graph != nil {
		fmt.Fprintf(w, "Graph: %d nodes, %d edges\n", report.Graph.Nodes, report.Graph.Edges)
	}
	if report.Snapshot != nil {
		fmt.Fprintf(w, "Snapshot: %s\n", report.Snapshot.ID)
	}
	if report.Export != nil {
		fmt.Fprintf(w, "Exported: %d nodes (%d external), %d edges\n",
			report.Export.Nodes, report.Export.ExternalNodes, report.Export.Edges)
	}

	if len(report.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics:\n")
		for _, d := range report.Diagnostics {
			fmt.Fprintf(w, "- %s\n", d)
		}
	}
	return nil
}

func scoreEmoji(score float64) string {
	switch impact.Bucket(score) {
	case "high":
		return "🔴"
	case "medium":
		return "⚠️ "
	default:
		return "ℹ️ "
	}
}

// pathNames renders a path with entity names where the result knows them
func pathNames(result *impact.Result, path impact.CriticalPath) string {
	names := make([]string, 0, len(path.Nodes))
	for _, id := range path.Nodes {
		if n, ok := result.Node(id); ok && n.Name != "" {
			names = append(names, n.Name)
		} else {
			names = append(names, id)
		}
	}
	return strings.Join(names, " → ")
}
