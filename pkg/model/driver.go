package model

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/limaJavier/ctspd/pkg/milp"
)

type State int

const (
	StateBuilt State = iota
	StateSolving
	StateOptimal
	StateFeasibleTimeLimit
	StateInfeasible
	StateNoIncumbent
	StateRelaxed
)

func (state State) String() string {
	switch state {
	case StateBuilt:
		return "built"
	case StateSolving:
		return "solving"
	case StateOptimal:
		return "optimal"
	case StateFeasibleTimeLimit:
		return "feasible-time-limit"
	case StateInfeasible:
		return "infeasible"
	case StateNoIncumbent:
		return "no-incumbent"
	case StateRelaxed:
		return "relaxed"
	}
	return fmt.Sprintf("State(%d)", int(state))
}

func (state State) Terminal() bool {
	return state > StateSolving
}

// Driver hands a formulation to a solver once and turns the answer into a tour.
type Driver struct {
	f      *Formulation
	solver milp.Solver
	state  State
}

func NewDriver(f *Formulation, solver milp.Solver) *Driver {
	return &Driver{f: f, solver: solver, state: StateBuilt}
}

func (driver *Driver) State() State {
	return driver.state
}

func (driver *Driver) Formulation() *Formulation {
	return driver.f
}

// WarmStart registers tour as the solver starting point. It never solves.
func (driver *Driver) WarmStart(tour []int) error {
	if driver.state != StateBuilt {
		return ErrAlreadySolved
	}
	return WarmStart(driver.f, tour)
}

type Result struct {
	Formulation string        `json:"formulation"`
	State       State         `json:"-"`
	Status      string        `json:"status"`
	Relaxed     bool          `json:"relaxed"`
	Objective   *float64      `json:"objective,omitempty"`
	Runtime     time.Duration `json:"-"`
	Seconds     float64       `json:"runtimeSeconds"`
	Gap         *float64      `json:"relativeGap,omitempty"`
	Arcs        []Arc         `json:"-"`
	Route       [][2]int      `json:"route,omitempty"`
	Tour        []int         `json:"tour,omitempty"`
	TourCost    *float64      `json:"tourCost,omitempty"`
	Variables   int           `json:"variables"`
	Constraints int           `json:"constraints"`
}

// Record is the exported form of a result.
type Record struct {
	RunID    string    `json:"runId"`
	Instance string    `json:"instance"`
	Clusters int       `json:"clusters"`
	Nodes    int       `json:"nodes"`
	D        int       `json:"d"`
	SolvedAt time.Time `json:"solvedAt"`
	Result
}

func (result *Result) Export(input ModelInput) Record {
	return Record{
		RunID:    uuid.NewString(),
		Instance: input.Name,
		Clusters: input.TotalClusters(),
		Nodes:    input.Nodes(),
		D:        input.D,
		SolvedAt: time.Now().UTC(),
		Result:   *result,
	}
}

// Solve runs the solver once. Infeasibility and time limits without incumbent
// are reported through the result state; solver failures and selected arcs
// that do not form a tour are errors.
func (driver *Driver) Solve(ctx context.Context, params milp.Parameters) (*Result, error) {
	if driver.state != StateBuilt {
		return nil, ErrAlreadySolved
	}

	f := driver.f
	driver.state = StateSolving
	f.solved = true
	log.V(1).Infof("solving %v", f.Model.Name())

	solution, err := driver.solver.Solve(ctx, f.Model, params)
	if err != nil {
		driver.state = StateBuilt
		f.solved = false
		return nil, fmt.Errorf("solving %v: %w", f.Model.Name(), err)
	}

	result := &Result{
		Formulation: f.Variant.Alias(),
		Relaxed:     f.Relaxed,
		Objective:   solution.Objective,
		Runtime:     solution.Runtime,
		Seconds:     solution.Runtime.Seconds(),
		Gap:         solution.Gap,
		Variables:   f.Model.NumVars(),
		Constraints: f.Model.NumConstraints(),
	}
	driver.finish(result, stateOf(solution.Status, f.Relaxed))

	if f.Relaxed || !solution.HasIncumbent() {
		return result, nil
	}

	result.Arcs = SelectedArcs(f, solution.Values, SelectionThreshold)
	tour, err := ExtractTour(f.Nodes(), result.Arcs)
	if err != nil {
		return result, err
	}
	cost := TourCost(f.Input, tour)
	result.Tour = tour
	result.TourCost = &cost
	for _, arc := range result.Arcs {
		result.Route = append(result.Route, [2]int{arc.From, arc.To})
	}
	return result, nil
}

func (driver *Driver) finish(result *Result, state State) {
	driver.state = state
	result.State = state
	result.Status = state.String()
	log.V(1).Infof("%v finished as %v", driver.f.Model.Name(), state)
}

func stateOf(status milp.Status, relaxed bool) State {
	switch status {
	case milp.StatusInfeasible:
		return StateInfeasible
	case milp.StatusNoIncumbent:
		return StateNoIncumbent
	}
	if relaxed {
		return StateRelaxed
	}
	if status == milp.StatusOptimal {
		return StateOptimal
	}
	return StateFeasibleTimeLimit
}
