package impact

import "github.com/rohankatakam/codeimpact/internal/models"

// ImpactNode is one entity reached by propagation
type ImpactNode struct {
	EntityID        string            `json:"entity_id" yaml:"entity_id"`
	Name            string            `json:"name" yaml:"name"`
	FilePath        string            `json:"file_path" yaml:"file_path"`
	Kind            models.EntityKind `json:"kind" yaml:"kind"`
	Score           float64           `json:"impact_score" yaml:"impact_score"`
	DirectOutDegree int               `json:"direct_out_degree" yaml:"direct_out_degree"`
	ReachableCount  int               `json:"reachable_count" yaml:"reachable_count"`
	Depth           int               `json:"depth" yaml:"depth"`
}

// FileImpact is the mean score of a file's impacted entities
type FileImpact struct {
	FilePath string  `json:"file_path" yaml:"file_path"`
	Score    float64 `json:"score" yaml:"score"`
	Entities int     `json:"entities" yaml:"entities"`
}

// CriticalPath is a path from the source to a high-impact node, scored by
// the product of its edge weights
type CriticalPath struct {
	Target string   `json:"target" yaml:"target"`
	Nodes  []string `json:"nodes" yaml:"nodes"`
	Score  float64  `json:"score" yaml:"score"`
}

// ImpactMatrix is a file-by-file matrix over the files touched by a result.
// Values[i][i] is the summed node score of file i; Values[i][j] is the summed
// weight of edges from impacted nodes in file i to impacted nodes in file j.
type ImpactMatrix struct {
	Files  []string    `json:"files" yaml:"files"`
	Values [][]float64 `json:"values" yaml:"values"`
}

// Result is the read-only output of one (source, max depth) query. Cached
// results are shared between callers and must not be mutated.
type Result struct {
	SourceID      string         `json:"source_id" yaml:"source_id"`
	MaxDepth      int            `json:"max_depth" yaml:"max_depth"`
	Nodes         []ImpactNode   `json:"nodes" yaml:"nodes"`
	FileImpacts   []FileImpact   `json:"file_impacts" yaml:"file_impacts"`
	CriticalPaths []CriticalPath `json:"critical_paths" yaml:"critical_paths"`
	Matrix        ImpactMatrix   `json:"impact_matrix" yaml:"impact_matrix"`
	Generation    uint64         `json:"graph_generation" yaml:"graph_generation"`
}

// FileImpactMap returns file path -> aggregate score
func (r *Result) FileImpactMap() map[string]float64 {
	out := make(map[string]float64, len(r.FileImpacts))
	for _, f := range r.FileImpacts {
		out[f.FilePath] = f.Score
	}
	return out
}

// Node returns the impact node for id
func (r *Result) Node(id string) (ImpactNode, bool) {
	for _, n := range r.Nodes {
		if n.EntityID == id {
			return n, true
		}
	}
	return ImpactNode{}, false
}

func emptyResult(sourceID string, maxDepth int, generation uint64) *Result {
	return &Result{
		SourceID:      sourceID,
		MaxDepth:      maxDepth,
		Nodes:         []ImpactNode{},
		FileImpacts:   []FileImpact{},
		CriticalPaths: []CriticalPath{},
		Matrix:        ImpactMatrix{Files: []string{}, Values: [][]float64{}},
		Generation:    generation,
	}
}
