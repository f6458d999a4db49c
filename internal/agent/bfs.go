package agent

// ShortestPath returns the room sequence from start to end over the map
// adjacency, both endpoints included. Neighbor order follows the adjacency
// slices, so results are stable for a given catalog. Returns nil when end
// is unreachable.
func ShortestPath(start, end string, adjacency map[string][]string) []string {
	if start == end {
		return []string{start}
	}
	visited := map[string]bool{start: true}
	queue := [][]string{{start}}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		node := path[len(path)-1]
		for _, neighbor := range adjacency[node] {
			if neighbor == end {
				return append(append([]string(nil), path...), neighbor)
			}
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, append(append([]string(nil), path...), neighbor))
			}
		}
	}
	return nil
}

// NextHop returns the first move along the shortest path from start to
// end, or "" when already there or end is unreachable.
func NextHop(start, end string, adjacency map[string][]string) string {
	path := ShortestPath(start, end, adjacency)
	if len(path) < 2 {
		return ""
	}
	return path[1]
}
