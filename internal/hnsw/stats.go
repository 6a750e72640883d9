package hnsw

// Stats describes the shape of the graph.
type Stats struct {
	Nodes    int
	MaxLevel int
	// LevelNodes counts the nodes whose top layer is the index.
	LevelNodes []int
	// AvgConnections is the mean connection count per node and layer.
	AvgConnections []float64
}

// Stats returns statistics about the HNSW graph.
func (h *HNSW) Stats() Stats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	s := Stats{
		Nodes:          len(h.nodes),
		MaxLevel:       h.maxLevel,
		LevelNodes:     make([]int, h.maxLevel+1),
		AvgConnections: make([]float64, h.maxLevel+1),
	}
	if len(h.nodes) == 0 {
		return s
	}

	members := make([]int, h.maxLevel+1)
	for _, node := range h.nodes {
		s.LevelNodes[node.Layer]++
		for level := node.Layer; level >= 0; level-- {
			s.AvgConnections[level] += float64(len(node.Connections[level]))
			members[level]++
		}
	}
	for level, n := range members {
		if n > 0 {
			s.AvgConnections[level] /= float64(n)
		}
	}
	return s
}
