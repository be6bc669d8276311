package model

import (
	"slices"

	"github.com/limaJavier/ctspd/pkg/milp"
)

// Assignment maps a tour onto every variable of f: x from the tour arcs, u_i
// the position of i, y_ij whether i comes before j, and t_ijk = x_ik * y_kj.
func Assignment(f *Formulation, tour []int) ([]float64, error) {
	n := f.Nodes()
	if reason := ValidateTour(n, tour); reason != "" {
		return nil, &WarmStartError{Tour: slices.Clone(tour), Reason: reason}
	}

	position := positions(tour[:n])
	successor := make([]int, n)
	for k := range n {
		successor[tour[k]] = tour[k+1]
	}
	boolean := func(condition bool) float64 {
		if condition {
			return 1
		}
		return 0
	}

	values := make([]float64, f.Model.NumVars())
	for arc, v := range f.X {
		values[v] = boolean(successor[arc.From] == arc.To)
	}
	for i, v := range f.U {
		values[v] = float64(position[i])
	}
	for arc, v := range f.Y {
		values[v] = boolean(position[arc.From] < position[arc.To])
	}
	for triple, v := range f.T {
		values[v] = boolean(successor[triple.I] == triple.K && position[triple.K] < position[triple.J])
	}
	return values, nil
}

// WarmStart replaces the hints of f with the assignment of tour. The model is
// left untouched when the tour is invalid.
func WarmStart(f *Formulation, tour []int) error {
	values, err := Assignment(f, tour)
	if err != nil {
		return err
	}

	f.Model.ClearHints()
	for v, value := range values {
		f.Model.SetHint(milp.Var(v), value)
	}
	return f.Model.Err()
}
