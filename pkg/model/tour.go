package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// SelectionThreshold separates selected arcs from unselected ones in a
// solver assignment.
const SelectionThreshold = 0.5

// SelectedArcs returns, in arc order, the arcs whose x value exceeds tol.
func SelectedArcs(f *Formulation, values []float64, tol float64) []Arc {
	return lo.Filter(f.Arcs, func(arc Arc, _ int) bool {
		return values[f.X[arc]] > tol
	})
}

// ExtractTour follows successors from the depot. The arcs must form one
// cycle through all n nodes, otherwise an *ExtractionError is returned.
func ExtractTour(n int, arcs []Arc) ([]int, error) {
	fail := func(format string, args ...any) ([]int, error) {
		return nil, &ExtractionError{Arcs: arcs, Reason: fmt.Sprintf(format, args...)}
	}

	successor := make(map[int]int, len(arcs))
	for _, arc := range arcs {
		if arc.From < 0 || arc.From >= n || arc.To < 0 || arc.To >= n {
			return fail("arc %v leaves the node range [0, %v)", arc, n)
		}
		if next, ok := successor[arc.From]; ok {
			return fail("node %v has two successors, %v and %v", arc.From, next, arc.To)
		}
		successor[arc.From] = arc.To
	}

	tour := []int{Depot}
	visited := make([]bool, n)
	visited[Depot] = true
	current := Depot
	for steps := 0; ; steps++ {
		if steps >= n {
			return fail("no return to the depot after %v steps", n)
		}
		next, ok := successor[current]
		if !ok {
			return fail("node %v has no successor", current)
		}
		tour = append(tour, next)
		if next == Depot {
			break
		}
		if visited[next] {
			return fail("node %v is visited twice", next)
		}
		visited[next] = true
		current = next
	}

	if len(tour) != n+1 {
		missing := lo.Filter(lo.Range(n), func(node int, _ int) bool { return !visited[node] })
		return fail("the depot cycle misses nodes %v", missing)
	}
	return tour, nil
}

// ValidateTour checks that tour is closed at the depot and visits every node
// once. It returns the reason of the first violation, or "".
func ValidateTour(n int, tour []int) string {
	if len(tour) != n+1 {
		return fmt.Sprintf("expected %v entries, got %v", n+1, len(tour))
	}
	if tour[0] != Depot || tour[n] != Depot {
		return "the tour must start and end at the depot"
	}
	seen := make([]bool, n)
	for _, node := range tour[:n] {
		if node < 0 || node >= n {
			return fmt.Sprintf("node %v is out of range", node)
		}
		if seen[node] {
			return fmt.Sprintf("node %v is repeated", node)
		}
		seen[node] = true
	}
	return ""
}

// Precedes reports whether tour respects every cluster precedence of input.
func Precedes(input ModelInput, tour []int) bool {
	position := positions(tour[:len(tour)-1])
	for p, cluster := range input.Clusters {
		for q := p + input.D + 1; q < input.TotalClusters(); q++ {
			for _, i := range cluster {
				for _, j := range input.Clusters[q] {
					if position[i] > position[j] {
						return false
					}
				}
			}
		}
	}
	return true
}

func TourCost(input ModelInput, tour []int) float64 {
	cost := 0.0
	for k := 0; k+1 < len(tour); k++ {
		cost += input.Distances[tour[k]][tour[k+1]]
	}
	return cost
}

func TourArcs(tour []int) []Arc {
	arcs := make([]Arc, 0, len(tour)-1)
	for k := 0; k+1 < len(tour); k++ {
		arcs = append(arcs, Arc{From: tour[k], To: tour[k+1]})
	}
	slices.SortFunc(arcs, func(a, b Arc) int {
		if a.From != b.From {
			return a.From - b.From
		}
		return a.To - b.To
	})
	return arcs
}

func positions(order []int) []int {
	position := make([]int, len(order))
	for k, node := range order {
		position[node] = k
	}
	return position
}
