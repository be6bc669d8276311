package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	log "github.com/golang/glog"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var ErrIntegerModel = errors.New("milp: simplex solver only handles continuous models")

var errNoFeasiblePoint = errors.New("simplex: no feasible point")

const (
	feasibilityTolerance = 1e-6
	perturbationStep     = 1e-7
	penaltyGrowth        = 100
	penaltyAttempts      = 3
)

// simplexSolver solves linear relaxations in-process with gonum's simplex.
type simplexSolver struct{}

func NewSimplexSolver() Solver {
	return &simplexSolver{}
}

func (solver *simplexSolver) Solve(ctx context.Context, model *Model, params Parameters) (*Solution, error) {
	if err := checkModel(model); err != nil {
		return nil, err
	}
	if !model.IsContinuous() {
		return nil, ErrIntegerModel
	}
	if model.HasHints() {
		log.V(1).Infof("simplex ignores warm-start hints of %v", model.Name())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	form, err := newStandardForm(model)
	var x []float64
	if err == nil {
		x, err = form.optimize(false)
		if err != nil && !errors.Is(err, errNoFeasiblePoint) && !errors.Is(err, lp.ErrUnbounded) {
			// Degenerate pivots can stall Bland's rule, distinct right-hand sides avoid them
			log.V(1).Infof("simplex stalled on %v, retrying with perturbed right-hand sides: %v", model.Name(), err)
			x, err = form.optimize(true)
		}
	}

	switch {
	case errors.Is(err, errNoFeasiblePoint), errors.Is(err, lp.ErrInfeasible):
		return newSolution(StatusInfeasible, model, nil, time.Since(start), nil), nil
	case errors.Is(err, lp.ErrUnbounded):
		return nil, fmt.Errorf("simplex: model %v is unbounded", model.Name())
	case err != nil:
		return nil, fmt.Errorf("an error occurred during simplex execution: %w", err)
	}

	values := make([]float64, model.NumVars())
	for i := range values {
		values[i] = x[i] + form.lower[i]
	}
	echoLog("simplex", params, fmt.Sprintf("%v rows, %v columns, objective %v", len(form.a), len(form.c), model.ObjectiveValue(values)))
	return newSolution(StatusOptimal, model, values, time.Since(start), nil), nil
}

// standardForm is min c·x s.t. A·x = b, x >= 0, b >= 0. The first columns are
// the model variables shifted by their lower bound, the rest are slacks.
type standardForm struct {
	c     []float64
	a     [][]float64
	b     []float64
	lower []float64
}

func newStandardForm(model *Model) (standardForm, error) {
	structural := model.NumVars()
	lower := make([]float64, structural)
	upper := make([]float64, structural)
	bounded := []Var{}
	for i := range structural {
		lb, ub := model.Bounds(Var(i))
		if math.IsInf(lb, 0) {
			return standardForm{}, fmt.Errorf("simplex: variable %v has no finite lower bound", model.VarName(Var(i)))
		}
		lower[i], upper[i] = lb, ub
		if !math.IsInf(ub, 1) {
			bounded = append(bounded, Var(i))
		}
	}

	used := make([]bool, structural)
	for _, v := range bounded {
		used[v] = true
	}
	for _, constraint := range model.Constraints() {
		for _, term := range constraint.Terms {
			used[term.Var] = true
		}
	}
	free := []Var{}
	for i, ok := range used {
		if !ok {
			free = append(free, Var(i))
		}
	}

	slacks := len(bounded) + len(free)
	for _, constraint := range model.Constraints() {
		if constraint.Sense != Equal {
			slacks++
		}
	}
	cols := structural + slacks

	form := standardForm{
		c:     make([]float64, cols),
		lower: lower,
	}
	copy(form.c, model.ObjectiveCoefficients())

	slack := structural
	addRow := func(row []float64, rhs float64) {
		if rhs < 0 {
			for j := range row {
				row[j] = -row[j]
			}
			rhs = -rhs
		}
		form.a = append(form.a, row)
		form.b = append(form.b, rhs)
	}

	for _, constraint := range model.Constraints() {
		row := make([]float64, cols)
		rhs := constraint.RHS
		for _, term := range constraint.Terms {
			row[term.Var] += term.Coef
			rhs -= term.Coef * lower[term.Var]
		}
		switch constraint.Sense {
		case LessOrEqual:
			row[slack] = 1
			slack++
		case GreaterOrEqual:
			row[slack] = -1
			slack++
		}
		addRow(row, rhs)
	}

	for _, v := range free {
		if form.c[v] < 0 {
			return standardForm{}, fmt.Errorf("simplex: %v decreases the objective without limit: %w", model.VarName(v), lp.ErrUnbounded)
		}
		// A column of zeros is rejected by gonum, pin the variable at its lower bound
		bounded = append(bounded, v)
		upper[v] = lower[v]
	}

	for _, v := range bounded {
		row := make([]float64, cols)
		row[v] = 1
		row[slack] = 1
		slack++
		addRow(row, upper[v]-lower[v])
	}
	return form, nil
}

// optimize solves the standard form with one artificial column per row. The
// artificial columns give a feasible starting basis and full row rank, so
// redundant rows need no special care. Artificial values are penalized, and
// the penalty grows until they vanish or the attempts run out.
func (form standardForm) optimize(perturb bool) ([]float64, error) {
	m, n := len(form.a), len(form.c)
	if m == 0 {
		if lo.SomeBy(form.c, func(coef float64) bool { return coef < 0 }) {
			return nil, lp.ErrUnbounded
		}
		return make([]float64, n), nil
	}

	b := slices.Clone(form.b)
	tolerance := feasibilityTolerance * (1 + floats.Max(b))
	if perturb {
		for i := range b {
			b[i] += perturbationStep * float64(m+i+1) / float64(m)
		}
		tolerance += 2 * perturbationStep * float64(m)
	}

	a := mat.NewDense(m, n+m, nil)
	for i, row := range form.a {
		for j, value := range row {
			if value != 0 {
				a.Set(i, j, value)
			}
		}
		a.Set(i, n+i, 1)
	}

	penalty := 1e3 * (1 + lo.Max(lo.Map(form.c, func(coef float64, _ int) float64 { return math.Abs(coef) })))
	for range penaltyAttempts {
		c := make([]float64, n+m)
		copy(c, form.c)
		basis := make([]int, m)
		for i := range m {
			c[n+i] = penalty
			basis[i] = n + i
		}

		_, x, err := lp.Simplex(c, a, slices.Clone(b), 0, basis)
		if err != nil {
			return nil, err
		}
		if floats.Sum(x[n:]) <= tolerance {
			return x[:n], nil
		}
		penalty *= penaltyGrowth
	}
	return nil, errNoFeasiblePoint
}
