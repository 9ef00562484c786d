package output

import (
	"fmt"
	"io"

	"github.com/rohankatakam/codeimpact/internal/impact"
)

// QuietFormatter outputs one-line summary (for hooks and scripts)
type QuietFormatter struct{}

func (f *QuietFormatter) FormatImpact(report *ImpactReport, w io.Writer) error {
	if len(report.Result.Nodes) == 0 {
		fmt.Fprintf(w, "❓ %s not found\n", report.Result.SourceID)
		return nil
	}

	d := report.Summary.Distribution
	_, err := fmt.Fprintf(w, "%s %s: %d entities in %d files (high %d, medium %d, low %d)\n",
		bucketEmoji(d.High, d.Medium),
		displayName(report.Source),
		report.Summary.TotalImpactedNodes,
		report.Summary.TotalImpactedFiles,
		d.High, d.Medium, d.Low,
	)
	return err
}

func (f *QuietFormatter) FormatAnalysis(report *AnalysisReport, w io.Writer) error {
	_, err := fmt.Fprintf(w, "✅ %d files, %d entities, %d relationships (%d unresolved), %d failed\n",
		report.Files.Total, report.Entities, report.Relationships,
		report.Resolution.Unresolved, report.UnitsFailed)
	return err
}

// bucketEmoji flags a result by its strongest bucket; the source itself is always high
func bucketEmoji(high, medium int) string {
	switch {
	case high > 1:
		return "🔴"
	case medium > 0:
		return "⚠️ "
	default:
		return "✅"
	}
}

func displayName(n impact.ImpactNode) string {
	if n.Name == "" {
		return n.EntityID
	}
	if n.FilePath == "" {
		return n.Name
	}
	return n.FilePath + "::" + n.Name
}
