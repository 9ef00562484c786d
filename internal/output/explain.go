package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// ExplainFormatter adds every impacted node and the file impact matrix to
// the standard output
type ExplainFormatter struct {
	standard StandardFormatter
}

func (f *ExplainFormatter) FormatImpact(report *ImpactReport, w io.Writer) error {
	if err := f.standard.FormatImpact(report, w); err != nil {
		return err
	}
	result := report.Result
	if len(result.Nodes) == 0 {
		return nil
	}

	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "Impacted entities (generation %d)\n", result.Generation)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	for _, n := range result.Nodes {
		fmt.Fprintf(w, "  %s %.4f  d=%d  out=%d  reach=%d  %s [%s]\n",
			scoreEmoji(n.Score), n.Score, n.Depth, n.DirectOutDegree, n.ReachableCount,
			displayName(n), n.Kind)
	}
	fmt.Fprintf(w, "\n")

	m := result.Matrix
	if len(m.Files) > 1 {
		fmt.Fprintf(w, "Impact matrix (row → column):\n")
		for i, file := range m.Files {
			cells := make([]string, len(m.Values[i]))
			for j, v := range m.Values[i] {
				cells[j] = fmt.Sprintf("%6.3f", v)
			}
			fmt.Fprintf(w, "  [%d] %s\n      %s\n", i, file, strings.Join(cells, " "))
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}

func (f *ExplainFormatter) FormatAnalysis(report *AnalysisReport, w io.Writer) error {
	if err := f.standard.FormatAnalysis(report, w); err != nil {
		return err
	}

	if len(report.Resolution.ByKind) > 0 {
		fmt.Fprintf(w, "\nResolution by kind:\n")
		kinds := make([]string, 0, len(report.Resolution.ByKind))
		for kind := range report.Resolution.ByKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			res := report.Resolution.ByKind[models.RelationshipKind(kind)]
			fmt.Fprintf(w, "  - %s: %d resolved, %d unresolved\n", kind, res.Resolved, res.Unresolved)
		}
	}
	if report.Graph != nil {
		fmt.Fprintf(w, "\nGraph build: %d symbolic targets skipped, %d duplicate edges collapsed\n",
			report.Graph.SymbolicSkipped, report.Graph.DuplicateEdges)
	}
	return nil
}
