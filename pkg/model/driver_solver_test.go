package model

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDirectory = "testdata/"

func TestGurobiBasedDriver(t *testing.T) {
	requireExecutable(t, "gurobi_cl")
	t.Run("Optimal instances", func(t *testing.T) {
		optimalExecution(t, milp.NewGurobiSolver())
	})
}

func TestCbcBasedDriver(t *testing.T) {
	requireExecutable(t, "cbc")
	t.Run("Optimal instances", func(t *testing.T) {
		optimalExecution(t, milp.NewCbcSolver())
	})
}

func TestHighsBasedDriver(t *testing.T) {
	requireExecutable(t, "highs")
	t.Run("Optimal instances", func(t *testing.T) {
		optimalExecution(t, milp.NewHighsSolver())
	})
}

func requireExecutable(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%v is not available", name)
	}
}

// optimalExecution solves every valid instance of the test directory with
// every formulation and compares against the enumerated optimum.
func optimalExecution(t *testing.T, solver milp.Solver) {
	testFiles, err := os.ReadDir(testDirectory)
	require.Nil(t, err)

	for _, file := range testFiles {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		input, err := InputFromJson(filepath.Join(testDirectory, file.Name()))
		if err != nil {
			continue
		}

		for _, alias := range Aliases() {
			t.Run(input.Name+"/"+alias, func(t *testing.T) {
				//** Arrange
				reference := mustBuild(t, input, alias, false)
				expected, err := NewDriver(reference, &enumerationSolver{f: reference}).Solve(context.Background(), milp.DefaultParameters())
				require.Nil(t, err)

				f := mustBuild(t, input, alias, false)
				driver := NewDriver(f, solver)
				require.Nil(t, driver.WarmStart(NearestNeighbourTour(input)))
				params := milp.DefaultParameters()
				params.TimeLimit = time.Minute

				//** Act
				result, err := driver.Solve(context.Background(), params)

				//** Assert
				require.Nil(t, err)
				assert.Equal(t, StateOptimal, result.State)
				assert.InDelta(t, *expected.Objective, *result.Objective, 1e-6)
				assert.InDelta(t, *expected.Objective, *result.TourCost, 1e-6)
				assert.True(t, Precedes(input, result.Tour))
			})
		}
	}
}
