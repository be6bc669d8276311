package milp

import (
	"context"
	"fmt"
	"time"
)

type Status int

const (
	StatusOptimal     Status = iota // proven optimal incumbent
	StatusFeasible                  // limit reached with an incumbent
	StatusInfeasible                // proven infeasible
	StatusNoIncumbent               // limit reached without an incumbent
)

func (status Status) String() string {
	switch status {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusNoIncumbent:
		return "no-incumbent"
	}
	return fmt.Sprintf("Status(%d)", int(status))
}

type Parameters struct {
	TimeLimit    time.Duration // zero means no limit
	Heuristics   float64       // fraction of effort on primal heuristics, negative keeps the solver default
	MemoryLimit  float64       // gigabytes, zero means no limit
	LogVerbosity int           // zero keeps the solver log quiet
}

func DefaultParameters() Parameters {
	return Parameters{Heuristics: -1}
}

// Solution carries the outcome of one solver call. Values is indexed by
// variable and is nil when there is no incumbent.
type Solution struct {
	Status    Status
	Objective *float64
	Values    []float64
	Runtime   time.Duration
	Gap       *float64
}

func (solution *Solution) HasIncumbent() bool {
	return solution.Values != nil
}

type Solver interface {
	Solve(ctx context.Context, model *Model, params Parameters) (*Solution, error)
}

func NewSolver(name string) (Solver, error) {
	switch name {
	case "gurobi":
		return NewGurobiSolver(), nil
	case "cbc":
		return NewCbcSolver(), nil
	case "highs":
		return NewHighsSolver(), nil
	case "simplex":
		return NewSimplexSolver(), nil
	}
	return nil, fmt.Errorf("unknown solver %q", name)
}

func SolverNames() []string {
	return []string{"gurobi", "cbc", "highs", "simplex"}
}
