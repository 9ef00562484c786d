package graph

// BatchConfig defines batch sizes for UNWIND writes.
// Nodes carry body text, so they batch smaller than edges.
type BatchConfig struct {
	NodeBatchSize int
	EdgeBatchSize int
}

// DefaultBatchConfig returns batch sizes for medium codebases (~5K units)
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 1000,
		EdgeBatchSize: 5000,
	}
}

// SmallRepoBatchConfig uses smaller batches to reduce memory pressure
func SmallRepoBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 200,
		EdgeBatchSize: 1000,
	}
}

// LargeRepoBatchConfig uses larger batches for throughput
func LargeRepoBatchConfig() BatchConfig {
	return BatchConfig{
		NodeBatchSize: 2000,
		EdgeBatchSize: 10000,
	}
}

// BatchConfigForEntities picks a batch profile from the entity count
func BatchConfigForEntities(n int) BatchConfig {
	switch {
	case n < 5000:
		return SmallRepoBatchConfig()
	case n > 100000:
		return LargeRepoBatchConfig()
	default:
		return DefaultBatchConfig()
	}
}

// chunk splits n items into [start, end) ranges of at most size
func chunk(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var ranges [][2]int
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{i, end})
	}
	return ranges
}
