package output

import (
	"time"

	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/impact"
	"github.com/rohankatakam/codeimpact/internal/ingestion"
	"github.com/rohankatakam/codeimpact/internal/models"
)

// ImpactReport is the presentation form of one impact query
type ImpactReport struct {
	Root    string             `json:"root" yaml:"root"`
	Source  impact.ImpactNode  `json:"source" yaml:"source"`
	Summary impact.Summary     `json:"summary" yaml:"summary"`
	Result  *impact.Result     `json:"result" yaml:"result"`
	Cache   *impact.CacheStats `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// AnalysisReport is the presentation form of one analysis pass
type AnalysisReport struct {
	Root           string                    `json:"root" yaml:"root"`
	Files          ingestion.FileStats       `json:"files" yaml:"files"`
	UnitsParsed    int                       `json:"units_parsed" yaml:"units_parsed"`
	UnitsFailed    int                       `json:"units_failed" yaml:"units_failed"`
	CacheHits      int                       `json:"cache_hits" yaml:"cache_hits"`
	Entities       int                       `json:"entities" yaml:"entities"`
	EntitiesByKind map[string]int            `json:"entities_by_kind" yaml:"entities_by_kind"`
	Relationships  int                       `json:"relationships" yaml:"relationships"`
	Resolution     ingestion.ResolutionStats `json:"resolution" yaml:"resolution"`
	Graph          *graph.BuildStats         `json:"graph,omitempty" yaml:"graph,omitempty"`
	Diagnostics    []string                  `json:"diagnostics" yaml:"diagnostics"`
	Snapshot       *models.SnapshotMetadata  `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Export         *graph.ExportStats        `json:"export,omitempty" yaml:"export,omitempty"`
	DurationMS     int64                     `json:"duration_ms" yaml:"duration_ms"`
}

// Duration returns the analysis wall time
func (r *AnalysisReport) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}
