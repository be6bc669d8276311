package model

import "github.com/limaJavier/ctspd/pkg/milp"

// u_i - u_j + n x_ij <= n - 1 for every arc not entering the depot
func mtzConstraints(state *buildState) {
	n := float64(state.n)
	for _, arc := range state.f.Arcs {
		if arc.To == Depot {
			continue
		}
		expr := milp.NewLinearExpr().
			Add(state.f.U[arc.From]).
			AddTerm(state.f.U[arc.To], -1).
			AddTerm(state.x(arc.From, arc.To), n)
		state.add("mtz", expr, milp.LessOrEqual, n-1, arc.From, arc.To)
	}
}

// u_i + 1 <= u_j whenever i must precede j
func labelPrecedenceConstraints(state *buildState) {
	for _, pair := range state.latePairs() {
		expr := milp.NewLinearExpr().
			Add(state.f.U[pair.From]).
			AddTerm(state.f.U[pair.To], -1)
		state.add("label_precedence", expr, milp.LessOrEqual, -1, pair.From, pair.To)
	}
}
