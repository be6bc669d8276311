package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverLineExample(t *testing.T) {
	for _, alias := range Aliases() {
		t.Run(alias, func(t *testing.T) {
			//** Arrange
			f := mustBuild(t, lineInput(t, 1), alias, false)
			solver := &enumerationSolver{f: f}
			driver := NewDriver(f, solver)
			assert.Equal(t, StateBuilt, driver.State())

			//** Act
			result, err := driver.Solve(context.Background(), milp.DefaultParameters())

			//** Assert
			require.Nil(t, err)
			assert.Equal(t, StateOptimal, driver.State())
			assert.Equal(t, "optimal", result.Status)
			assert.Equal(t, alias, result.Formulation)
			require.NotNil(t, result.Objective)
			assert.Equal(t, 6.0, *result.Objective)
			assert.Equal(t, []int{0, 1, 2, 3, 0}, result.Tour)
			assert.Equal(t, 6.0, *result.TourCost)
			assert.Equal(t, []Arc{{0, 1}, {1, 2}, {2, 3}, {3, 0}}, result.Arcs)
			assert.Equal(t, 1, solver.calls)
		})
	}
}

func TestDriverWarmStartBound(t *testing.T) {
	input := mixedInput(t, 1)
	for _, tour := range allTours(input.Nodes()) {
		if !Precedes(input, tour) {
			continue
		}
		for _, alias := range []string{"MTZ2", "SSB1", "SST2"} {
			f := mustBuild(t, input, alias, false)
			driver := NewDriver(f, &enumerationSolver{f: f})
			require.Nil(t, driver.WarmStart(tour))

			result, err := driver.Solve(context.Background(), milp.DefaultParameters())

			require.Nil(t, err)
			assert.LessOrEqual(t, *result.Objective, TourCost(input, tour))
			assert.True(t, Precedes(input, result.Tour))
		}
	}
}

func TestDriverSolvesOnce(t *testing.T) {
	f := mustBuild(t, lineInput(t, 1), "MTZ1", false)
	driver := NewDriver(f, &enumerationSolver{f: f})

	_, err := driver.Solve(context.Background(), milp.DefaultParameters())
	require.Nil(t, err)

	_, err = driver.Solve(context.Background(), milp.DefaultParameters())
	assert.ErrorIs(t, err, ErrAlreadySolved)
	assert.ErrorIs(t, driver.WarmStart([]int{0, 1, 2, 3, 0}), ErrAlreadySolved)

	var buildErr *ModelBuildError
	assert.True(t, errors.As(Strengthen(f, Ha), &buildErr))
}

func TestDriverOutcomes(t *testing.T) {
	t.Run("Solver failure", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 1), "GP1", false)
		cause := errors.New("license expired")
		driver := NewDriver(f, &stubSolver{err: cause})

		result, err := driver.Solve(context.Background(), milp.DefaultParameters())

		assert.Nil(t, result)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, StateBuilt, driver.State())
	})

	t.Run("Infeasible", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 1), "SSB1", false)
		driver := NewDriver(f, &stubSolver{solution: &milp.Solution{Status: milp.StatusInfeasible}})

		result, err := driver.Solve(context.Background(), milp.DefaultParameters())

		require.Nil(t, err)
		assert.Equal(t, StateInfeasible, driver.State())
		assert.Nil(t, result.Tour)
		assert.Nil(t, result.Objective)
	})

	t.Run("Time limit without incumbent", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 1), "SST1", false)
		driver := NewDriver(f, &stubSolver{solution: &milp.Solution{Status: milp.StatusNoIncumbent}})

		result, err := driver.Solve(context.Background(), milp.DefaultParameters())

		require.Nil(t, err)
		assert.Equal(t, StateNoIncumbent, result.State)
		assert.Nil(t, result.Tour)
		assert.Empty(t, result.Arcs)
	})

	t.Run("Time limit with incumbent", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 1), "MTZ1", false)
		values, err := Assignment(f, []int{0, 2, 1, 3, 0})
		require.Nil(t, err)
		driver := NewDriver(f, &stubSolver{solution: &milp.Solution{
			Status:    milp.StatusFeasible,
			Values:    values,
			Objective: lo.ToPtr(8.0),
			Gap:       lo.ToPtr(0.25),
		}})

		result, err := driver.Solve(context.Background(), milp.DefaultParameters())

		require.Nil(t, err)
		assert.Equal(t, StateFeasibleTimeLimit, driver.State())
		assert.Equal(t, []int{0, 2, 1, 3, 0}, result.Tour)
		assert.Equal(t, 0.25, *result.Gap)
	})

	t.Run("Subtours in the incumbent", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 3), "MTZ1", false)
		values := make([]float64, f.Model.NumVars())
		for _, arc := range []Arc{{0, 1}, {1, 0}, {2, 3}, {3, 2}} {
			values[f.X[arc]] = 1
		}
		driver := NewDriver(f, &stubSolver{solution: &milp.Solution{Status: milp.StatusOptimal, Values: values, Objective: lo.ToPtr(4.0)}})

		_, err := driver.Solve(context.Background(), milp.DefaultParameters())

		var extractionErr *ExtractionError
		assert.True(t, errors.As(err, &extractionErr))
	})

	t.Run("Relaxation", func(t *testing.T) {
		f := mustBuild(t, lineInput(t, 1), "MTZ1", true)
		driver := NewDriver(f, milp.NewSimplexSolver())

		result, err := driver.Solve(context.Background(), milp.DefaultParameters())

		require.Nil(t, err)
		assert.Equal(t, StateRelaxed, driver.State())
		require.NotNil(t, result.Objective)
		assert.LessOrEqual(t, *result.Objective, 6.0+1e-6)
		assert.GreaterOrEqual(t, *result.Objective, -1e-6)
		assert.Nil(t, result.Tour)
	})
}

// The relaxation bound of every formulation never exceeds the integer optimum.
func TestDriverRelaxations(t *testing.T) {
	inputs := map[string]func(t *testing.T, d int) ModelInput{
		"line":  lineInput,
		"mixed": mixedInput,
	}

	for name, newInput := range inputs {
		for d := range 3 {
			input := newInput(t, d)
			for _, alias := range Aliases() {
				t.Run(fmt.Sprintf("%v d=%v %v", name, d, alias), func(t *testing.T) {
					//** Arrange
					exact := mustBuild(t, input, alias, false)
					optimum, err := NewDriver(exact, &enumerationSolver{f: exact}).Solve(context.Background(), milp.DefaultParameters())
					require.Nil(t, err)

					f := mustBuild(t, input, alias, true)
					driver := NewDriver(f, milp.NewSimplexSolver())

					//** Act
					result, err := driver.Solve(context.Background(), milp.DefaultParameters())

					//** Assert
					require.Nil(t, err)
					assert.Equal(t, StateRelaxed, result.State)
					require.NotNil(t, result.Objective)
					assert.LessOrEqual(t, *result.Objective, *optimum.Objective+1e-5)
					assert.GreaterOrEqual(t, *result.Objective, -1e-5)
				})
			}
		}
	}
}

func TestResultExport(t *testing.T) {
	input := lineInput(t, 1)
	f := mustBuild(t, input, "H2020", false)
	result, err := NewDriver(f, &enumerationSolver{f: f}).Solve(context.Background(), milp.DefaultParameters())
	require.Nil(t, err)

	record := result.Export(input)
	bytes, err := json.Marshal(record)
	require.Nil(t, err)

	var decoded map[string]any
	require.Nil(t, json.Unmarshal(bytes, &decoded))
	assert.Equal(t, "line4", decoded["instance"])
	assert.Equal(t, "H2020", decoded["formulation"])
	assert.Equal(t, "optimal", decoded["status"])
	assert.Equal(t, 6.0, decoded["objective"])
	assert.Len(t, decoded["runId"], 36)
	assert.Len(t, decoded["tour"], 5)
}
