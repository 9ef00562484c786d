package impact

import (
	"sort"

	"github.com/rohankatakam/codeimpact/internal/graph"
)

// AggregateByFile groups nodes by file and scores each file by the mean of
// its members, so files with many small entities do not dominate by count
func AggregateByFile(nodes []ImpactNode) []FileImpact {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, n := range nodes {
		sums[n.FilePath] += n.Score
		counts[n.FilePath]++
	}

	out := make([]FileImpact, 0, len(sums))
	for path, sum := range sums {
		out = append(out, FileImpact{
			FilePath: path,
			Score:    sum / float64(counts[path]),
			Entities: counts[path],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].FilePath < out[j].FilePath
	})
	return out
}

// CriticalPaths finds shortest paths from sourceID to the k highest-ranked
// impacted nodes and keeps the n strongest by product of edge weights.
// Targets with no path are omitted.
func CriticalPaths(g *graph.DependencyGraph, sourceID string, ranked []ImpactNode, k, n int) []CriticalPath {
	paths := []CriticalPath{}
	considered := 0
	for _, node := range ranked {
		if considered >= k {
			break
		}
		if node.EntityID == sourceID {
			continue
		}
		considered++

		hops := g.ShortestPath(sourceID, node.EntityID)
		if len(hops) < 2 {
			continue
		}
		score := 1.0
		for i := 0; i+1 < len(hops); i++ {
			w, _ := g.EdgeWeight(hops[i], hops[i+1])
			score *= w
		}
		paths = append(paths, CriticalPath{Target: node.EntityID, Nodes: hops, Score: score})
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Score > paths[j].Score
	})
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}

// BuildMatrix builds the file-by-file impact matrix over impacted nodes.
// Files are sorted by path.
func BuildMatrix(g *graph.DependencyGraph, nodes []ImpactNode) ImpactMatrix {
	fileOf := make(map[string]string, len(nodes))
	scores := make(map[string]float64)
	for _, n := range nodes {
		fileOf[n.EntityID] = n.FilePath
		scores[n.FilePath] += n.Score
	}

	files := make([]string, 0, len(scores))
	for f := range scores {
		files = append(files, f)
	}
	sort.Strings(files)

	pos := make(map[string]int, len(files))
	values := make([][]float64, len(files))
	for i, f := range files {
		pos[f] = i
		values[i] = make([]float64, len(files))
		values[i][i] = scores[f]
	}

	for _, n := range nodes {
		from := pos[n.FilePath]
		for _, edge := range g.OutEdges(n.EntityID) {
			toFile, impacted := fileOf[edge.To]
			if !impacted || toFile == n.FilePath {
				continue
			}
			values[from][pos[toFile]] += edge.Weight
		}
	}

	return ImpactMatrix{Files: files, Values: values}
}
