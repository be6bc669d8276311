package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// lineInput places four nodes on a line, one per cluster, with d = 1.
func lineInput(t *testing.T, d int) ModelInput {
	t.Helper()
	input, err := NewModelInput("line4", [][]float64{
		{0, 1, 2, 3},
		{1, 0, 1, 2},
		{2, 1, 0, 1},
		{3, 2, 1, 0},
	}, [][]int{{0}, {1}, {2}, {3}}, d)
	require.Nil(t, err)
	return input
}

// mixedInput has a depot cluster holding a customer and a two-node cluster.
func mixedInput(t *testing.T, d int) ModelInput {
	t.Helper()
	input, err := NewModelInput("mixed5", [][]float64{
		{0, 4, 7, 3, 9},
		{4, 0, 2, 6, 5},
		{7, 2, 0, 8, 1},
		{3, 6, 8, 0, 2},
		{9, 5, 1, 2, 0},
	}, [][]int{{0, 1}, {2}, {3, 4}}, d)
	require.Nil(t, err)
	return input
}

// allTours lists every closed tour from the depot over n nodes.
func allTours(n int) [][]int {
	tours := [][]int{}
	var extend func(prefix []int, used []bool)
	extend = func(prefix []int, used []bool) {
		if len(prefix) == n {
			tours = append(tours, append(append([]int{}, prefix...), Depot))
			return
		}
		for node := 1; node < n; node++ {
			if used[node] {
				continue
			}
			used[node] = true
			extend(append(prefix, node), used)
			used[node] = false
		}
	}
	extend([]int{Depot}, make([]bool, n))
	return tours
}

// enumerationSolver is an exact optimizer for tiny formulations: it checks the
// assignment of every tour against the model and keeps the cheapest one.
type enumerationSolver struct {
	f     *Formulation
	calls int
}

func (solver *enumerationSolver) Solve(_ context.Context, model *milp.Model, _ milp.Parameters) (*milp.Solution, error) {
	solver.calls++
	if model != solver.f.Model {
		return nil, errors.New("unexpected model")
	}

	var best []float64
	bestObjective := math.Inf(1)
	for _, tour := range allTours(solver.f.Nodes()) {
		values, err := Assignment(solver.f, tour)
		if err != nil {
			return nil, err
		}
		if len(model.Check(values, 1e-9)) > 0 {
			continue
		}
		if objective := model.ObjectiveValue(values); objective < bestObjective {
			best, bestObjective = values, objective
		}
	}

	if best == nil {
		return &milp.Solution{Status: milp.StatusInfeasible}, nil
	}
	return &milp.Solution{
		Status:    milp.StatusOptimal,
		Objective: lo.ToPtr(bestObjective),
		Values:    best,
		Gap:       lo.ToPtr(0.0),
	}, nil
}

// stubSolver returns a fixed answer.
type stubSolver struct {
	solution *milp.Solution
	err      error
}

func (solver *stubSolver) Solve(context.Context, *milp.Model, milp.Parameters) (*milp.Solution, error) {
	return solver.solution, solver.err
}

func mustBuild(t *testing.T, input ModelInput, alias string, relax bool) *Formulation {
	t.Helper()
	variant, err := ParseVariant(alias)
	require.Nil(t, err)
	f, err := Build(input, variant, relax)
	require.Nil(t, err)
	return f
}
