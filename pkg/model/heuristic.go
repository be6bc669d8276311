package model

import "math"

// NearestNeighbourTour builds a tour that respects the cluster precedences:
// from the current node it moves to the closest unvisited node whose
// mandatory predecessor clusters are fully visited, ties going to the lowest
// index. The lowest cluster with unvisited nodes is always eligible, so the
// construction never gets stuck.
func NearestNeighbourTour(input ModelInput) []int {
	n := input.Nodes()
	clusterOf := make([]int, n)
	remaining := make([]int, input.TotalClusters())
	for p, cluster := range input.Clusters {
		for _, node := range cluster {
			clusterOf[node] = p
			if node != Depot {
				remaining[p]++
			}
		}
	}

	eligible := func(node int) bool {
		for p := 0; p < clusterOf[node]-input.D; p++ {
			if remaining[p] > 0 {
				return false
			}
		}
		return true
	}

	tour := make([]int, 0, n+1)
	tour = append(tour, Depot)
	visited := make([]bool, n)
	visited[Depot] = true
	current := Depot
	for len(tour) < n {
		next, best := -1, math.Inf(1)
		for node := 1; node < n; node++ {
			if visited[node] || !eligible(node) {
				continue
			}
			if distance := input.Distances[current][node]; distance < best {
				next, best = node, distance
			}
		}

		tour = append(tour, next)
		visited[next] = true
		remaining[clusterOf[next]]--
		current = next
	}
	return append(tour, Depot)
}
