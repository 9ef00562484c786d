package impact

// Score bucket bounds for the impact distribution
const (
	HighImpactThreshold   = 0.7
	MediumImpactThreshold = 0.3
)

// Distribution counts nodes per score bucket:
// high > 0.7, medium in (0.3, 0.7], low <= 0.3
type Distribution struct {
	High   int `json:"high" yaml:"high"`
	Medium int `json:"medium" yaml:"medium"`
	Low    int `json:"low" yaml:"low"`
}

// Summary is a compact projection of a Result for presentation layers
type Summary struct {
	TotalImpactedNodes int            `json:"total_impacted_nodes" yaml:"total_impacted_nodes"`
	TotalImpactedFiles int            `json:"total_impacted_files" yaml:"total_impacted_files"`
	TopFiles           []FileImpact   `json:"top_files" yaml:"top_files"`
	CriticalPaths      []CriticalPath `json:"critical_paths" yaml:"critical_paths"`
	Distribution       Distribution   `json:"impact_distribution" yaml:"impact_distribution"`
}

// Bucket names the distribution bucket of a score
func Bucket(score float64) string {
	switch {
	case score > HighImpactThreshold:
		return "high"
	case score > MediumImpactThreshold:
		return "medium"
	default:
		return "low"
	}
}

// Summarize projects a result. The source node counts as impacted.
func Summarize(result *Result, topFiles int) Summary {
	s := Summary{
		TotalImpactedNodes: len(result.Nodes),
		TotalImpactedFiles: len(result.FileImpacts),
		TopFiles:           result.FileImpacts,
		CriticalPaths:      result.CriticalPaths,
	}
	if topFiles >= 0 && len(s.TopFiles) > topFiles {
		s.TopFiles = s.TopFiles[:topFiles]
	}

	for _, n := range result.Nodes {
		switch Bucket(n.Score) {
		case "high":
			s.Distribution.High++
		case "medium":
			s.Distribution.Medium++
		default:
			s.Distribution.Low++
		}
	}
	return s
}
