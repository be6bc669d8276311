package model

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/samber/lo"
)

// Strengthen adds valid inequalities to a built formulation. Every family is
// satisfied by the assignment of any feasible tour, so the integer optimum is
// unchanged. Offsets count customers only: the depot always sits at position 0.
func Strengthen(f *Formulation, strengthening Strengthening) error {
	variant := Variant{Kind: f.Variant.Kind, Strengthening: strengthening}
	fail := func(format string, args ...any) error {
		return &ModelBuildError{Variant: variant, Err: fmt.Errorf(format, args...)}
	}

	switch {
	case strengthening == None:
		return nil
	case f.solved:
		return fail("formulation was already solved")
	case f.Variant.Strengthening != None:
		return fail("formulation is already strengthened as %v", f.Variant)
	case strengthening == Ha && !f.Variant.HasLabels():
		return fail("Ha strengthening needs position labels")
	}

	//** Preconditions on the base variables
	kind := milp.Binary
	if f.Relaxed {
		kind = milp.Continuous
	}
	if len(f.X) != len(f.Arcs) || len(f.Arcs) == 0 {
		return fail("arc variables are missing")
	}
	for _, arc := range f.Arcs {
		if f.Model.Kind(f.X[arc]) != kind {
			return fail("arc variable %v is %v but the formulation relaxation needs %v", f.Model.VarName(f.X[arc]), f.Model.Kind(f.X[arc]), kind)
		}
	}
	if f.Variant.HasLabels() && len(f.U) != f.Nodes() {
		return fail("position labels are missing")
	}
	if f.Variant.HasPrecedence() && len(f.Y) != len(f.Arcs) {
		return fail("precedence variables are missing")
	}

	families := []func(state *buildState){
		depotOutWindowConstraints,
		depotInWindowConstraints,
		forwardJumpConstraints,
		backwardJumpConstraints,
	}
	if strengthening == ValidInequalities {
		if f.Variant.HasLabels() {
			families = append(families,
				labelPrecedenceGapConstraints,
				labelFloorConstraints,
				labelCeilingConstraints,
				liftedMtzConstraints,
				twoCycleConstraints,
			)
		} else {
			if f.Variant.Kind == PrecedenceA {
				families = append(families, precedenceTotalityConstraints)
			}
			families = append(families, depotFirstConstraints, depotLastConstraints)
		}
		families = append(families,
			firstPositionConstraints,
			lastPositionConstraints,
			positionAfterPredecessorConstraints,
			positionSumConstraints,
		)
	}

	state := &buildState{input: f.Input, f: f, model: f.Model, n: f.Nodes(), kind: kind}
	before := f.Model.NumConstraints()
	for _, family := range families {
		family(state)
	}
	if err := f.Model.Err(); err != nil {
		return &ModelBuildError{Variant: variant, Err: err}
	}

	f.Variant = variant
	log.V(2).Infof("strengthened %v with %v rows", f.Model.Name(), f.Model.NumConstraints()-before)
	return nil
}

// position is the number of nodes visited before i: u_i, or the sum of y_ki.
func (state *buildState) position(i int) *milp.LinearExpr {
	if state.f.Variant.HasLabels() {
		return milp.NewLinearExpr().Add(state.f.U[i])
	}
	expr := milp.NewLinearExpr()
	for k := range state.n {
		if k != i {
			expr.Add(state.y(k, i))
		}
	}
	return expr
}

func (state *buildState) membersOf(p int) []int {
	return state.input.Members[p]
}

//** Depot windows and cluster jumps

// The first customer cannot belong to a cluster with mandatory predecessors.
func depotOutWindowConstraints(state *buildState) {
	for p := range state.input.TotalClusters() {
		if state.input.before(p) == 0 || len(state.membersOf(p)) == 0 {
			continue
		}
		expr := milp.NewLinearExpr()
		for _, i := range state.membersOf(p) {
			expr.Add(state.x(Depot, i))
		}
		state.add("depot_out_window", expr, milp.Equal, 0, p)
	}
}

// The last customer cannot belong to a cluster with mandatory successors.
func depotInWindowConstraints(state *buildState) {
	for p := range state.input.TotalClusters() {
		if state.input.after(p) == 0 || len(state.membersOf(p)) == 0 {
			continue
		}
		expr := milp.NewLinearExpr()
		for _, i := range state.membersOf(p) {
			expr.Add(state.x(i, Depot))
		}
		state.add("depot_in_window", expr, milp.Equal, 0, p)
	}
}

// At most one arc leaves cluster p straight into a late cluster q.
func forwardJumpConstraints(state *buildState) {
	for _, clusters := range state.lateClusters() {
		p, q := clusters[0], clusters[1]
		expr := milp.NewLinearExpr()
		for _, i := range state.input.Clusters[p] {
			for _, j := range state.input.Clusters[q] {
				expr.Add(state.x(i, j))
			}
		}
		state.add("forward_jump", expr, milp.LessOrEqual, 1, p, q)
	}
}

// No arc goes from a late cluster q back into cluster p.
func backwardJumpConstraints(state *buildState) {
	for _, clusters := range state.lateClusters() {
		p, q := clusters[0], clusters[1]
		if len(state.membersOf(p)) == 0 {
			continue
		}
		expr := milp.NewLinearExpr()
		for _, i := range state.membersOf(p) {
			for _, j := range state.membersOf(q) {
				expr.Add(state.x(j, i))
			}
		}
		state.add("backward_jump", expr, milp.Equal, 0, p, q)
	}
}

//** Position labels

// u_i + 2 - x_ij <= u_j whenever i must precede j
func labelPrecedenceGapConstraints(state *buildState) {
	for _, pair := range state.latePairs() {
		expr := milp.NewLinearExpr().
			Add(state.f.U[pair.From]).
			AddTerm(state.f.U[pair.To], -1).
			AddTerm(state.x(pair.From, pair.To), -1)
		state.add("label_precedence_gap", expr, milp.LessOrEqual, -2, pair.From, pair.To)
	}
}

func labelFloorConstraints(state *buildState) {
	for p := state.input.D + 1; p < state.input.TotalClusters(); p++ {
		floor := float64(state.input.before(p) + 1)
		for _, j := range state.membersOf(p) {
			state.add("label_floor", milp.NewLinearExpr().Add(state.f.U[j]), milp.GreaterOrEqual, floor, j)
		}
	}
}

func labelCeilingConstraints(state *buildState) {
	for p := 0; p < state.input.TotalClusters()-state.input.D-1; p++ {
		ceiling := float64(state.n - 1 - state.input.after(p))
		for _, j := range state.membersOf(p) {
			state.add("label_ceiling", milp.NewLinearExpr().Add(state.f.U[j]), milp.LessOrEqual, ceiling, j)
		}
	}
}

// liftedBigM bounds |u_i - u_j| for customers i and j: the customers of the
// clusters reachable from both within the slack window, minus one.
func (state *buildState) liftedBigM(i, j int) float64 {
	p, q := state.input.ClusterOf[i], state.input.ClusterOf[j]
	p, q = min(p, q), max(p, q)
	from := max(0, p-state.input.D)
	to := min(state.input.TotalClusters()-1, q+state.input.D)
	spread := lo.Sum(lo.Map(state.input.Members[from:to+1], func(members []int, _ int) int {
		return len(members)
	})) - 1
	return math.Max(float64(spread), 1)
}

// u_i - u_j + (M+1) x_ij + (M-1) x_ji <= M
func liftedMtzConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		i, j := arc.From, arc.To
		bigM := state.liftedBigM(i, j)
		expr := milp.NewLinearExpr().
			Add(state.f.U[i]).
			AddTerm(state.f.U[j], -1).
			AddTerm(state.x(i, j), bigM+1).
			AddTerm(state.x(j, i), bigM-1)
		state.add("lifted_mtz", expr, milp.LessOrEqual, bigM, i, j)
	}
}

// x_ij + x_ji <= 1
func twoCycleConstraints(state *buildState) {
	for _, arc := range state.f.Arcs {
		if arc.From > arc.To {
			continue
		}
		expr := milp.NewLinearExpr().
			Add(state.x(arc.From, arc.To)).
			Add(state.x(arc.To, arc.From))
		state.add("two_cycle", expr, milp.LessOrEqual, 1, arc.From, arc.To)
	}
}

//** Precedence anchors

func depotFirstConstraints(state *buildState) {
	for j := 1; j < state.n; j++ {
		state.add("depot_first", milp.NewLinearExpr().Add(state.y(Depot, j)), milp.Equal, 1, j)
	}
}

func depotLastConstraints(state *buildState) {
	for i := 1; i < state.n; i++ {
		state.add("depot_last", milp.NewLinearExpr().Add(state.y(i, Depot)), milp.Equal, 0, i)
	}
}

//** Position bounds, shared by labels and precedence sums

// pos_i + (n-2) x_0i + sum_{j != 0} x_ij <= n
func firstPositionConstraints(state *buildState) {
	for i := 1; i < state.n; i++ {
		expr := state.position(i).AddTerm(state.x(Depot, i), float64(state.n-2))
		for j := 1; j < state.n; j++ {
			if j != i {
				expr.Add(state.x(i, j))
			}
		}
		state.add("first_position", expr, milp.LessOrEqual, float64(state.n), i)
	}
}

// pos_i >= (n-2) x_i0 + sum_{j != 0} x_ji
func lastPositionConstraints(state *buildState) {
	for i := 1; i < state.n; i++ {
		expr := state.position(i).AddTerm(state.x(i, Depot), -float64(state.n-2))
		for j := 1; j < state.n; j++ {
			if j != i {
				expr.AddTerm(state.x(j, i), -1)
			}
		}
		state.add("last_position", expr, milp.GreaterOrEqual, 0, i)
	}
}

// pos_i >= 1 + sum_{j != 0} x_ji for customers of the first d+1 clusters
func positionAfterPredecessorConstraints(state *buildState) {
	for p := 0; p <= state.input.D; p++ {
		for _, i := range state.membersOf(p) {
			expr := state.position(i)
			for j := 1; j < state.n; j++ {
				if j != i {
					expr.AddTerm(state.x(j, i), -1)
				}
			}
			state.add("position_after_predecessor", expr, milp.GreaterOrEqual, 1, i)
		}
	}
}

// positions are a permutation of 0..n-1
func positionSumConstraints(state *buildState) {
	expr := milp.NewLinearExpr()
	for i := range state.n {
		for _, term := range state.position(i).Terms() {
			expr.AddTerm(term.Var, term.Coef)
		}
	}
	state.add("position_sum", expr, milp.Equal, float64(state.n*(state.n-1)/2))
}
