package model

import "github.com/limaJavier/ctspd/pkg/milp"

// y_ij >= x_ij between customers
func arcPrecedenceConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		expr := milp.NewLinearExpr().
			Add(state.x(arc.From, arc.To)).
			AddTerm(state.y(arc.From, arc.To), -1)
		state.add("arc_precedence", expr, milp.LessOrEqual, 0, arc.From, arc.To)
	}
}

// x_ij + y_ji <= 1 between customers
func arcAntisymmetryConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		expr := milp.NewLinearExpr().
			Add(state.x(arc.From, arc.To)).
			Add(state.y(arc.To, arc.From))
		state.add("arc_antisymmetry", expr, milp.LessOrEqual, 1, arc.From, arc.To)
	}
}

// y_ij + y_ji = 1 between customers
func precedenceTotalityConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		expr := milp.NewLinearExpr().
			Add(state.y(arc.From, arc.To)).
			Add(state.y(arc.To, arc.From))
		state.add("precedence_totality", expr, milp.Equal, 1, arc.From, arc.To)
	}
}

// x_ji + x_ij + y_ki - y_kj <= 1
func gpTriangleConstraints(state *buildState) {
	for _, triple := range state.nonDepotTriples() {
		i, j, k := triple.I, triple.J, triple.K
		expr := milp.NewLinearExpr().
			Add(state.x(j, i)).
			Add(state.x(i, j)).
			Add(state.y(k, i)).
			AddTerm(state.y(k, j), -1)
		state.add("gp_triangle", expr, milp.LessOrEqual, 1, i, j, k)
	}
}

// x_kj + x_ik + x_ij + y_ki - y_kj <= 1
func gpPathConstraints(state *buildState) {
	for _, triple := range state.nonDepotTriples() {
		i, j, k := triple.I, triple.J, triple.K
		expr := milp.NewLinearExpr().
			Add(state.x(k, j)).
			Add(state.x(i, k)).
			Add(state.x(i, j)).
			Add(state.y(k, i)).
			AddTerm(state.y(k, j), -1)
		state.add("gp_path", expr, milp.LessOrEqual, 1, i, j, k)
	}
}

// y_ij + x_ji + y_jk + y_ki <= 2, no precedence cycle over three customers
func ssbTriangleConstraints(state *buildState) {
	for _, triple := range state.nonDepotTriples() {
		i, j, k := triple.I, triple.J, triple.K
		expr := milp.NewLinearExpr().
			Add(state.y(i, j)).
			Add(state.x(j, i)).
			Add(state.y(j, k)).
			Add(state.y(k, i))
		state.add("ssb_triangle", expr, milp.LessOrEqual, 2, i, j, k)
	}
}

// x_0j + x_j0 <= 1
func depotTwoCycleConstraints(state *buildState) {
	for j := 1; j < state.n; j++ {
		expr := milp.NewLinearExpr().
			Add(state.x(Depot, j)).
			Add(state.x(j, Depot))
		state.add("depot_two_cycle", expr, milp.LessOrEqual, 1, j)
	}
}

// y_ij = 1 whenever i must precede j
func clusterPrecedenceConstraints(state *buildState) {
	for _, pair := range state.latePairs() {
		state.add("cluster_precedence", milp.NewLinearExpr().Add(state.y(pair.From, pair.To)), milp.Equal, 1, pair.From, pair.To)
	}
}

//** Successor triples: t_ijk = 1 iff k directly follows i and precedes j

// t_ijk <= x_ik
func tripleLinkConstraints(state *buildState) {
	for _, triple := range state.nonDepotTriples() {
		expr := milp.NewLinearExpr().
			Add(state.f.T[triple]).
			AddTerm(state.x(triple.I, triple.K), -1)
		state.add("triple_link", expr, milp.LessOrEqual, 0, triple.I, triple.J, triple.K)
	}
}

// y_ij >= x_0i, the first customer precedes every other
func firstPrecedesConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		expr := milp.NewLinearExpr().
			Add(state.x(Depot, arc.From)).
			AddTerm(state.y(arc.From, arc.To), -1)
		state.add("first_precedes", expr, milp.LessOrEqual, 0, arc.From, arc.To)
	}
}

// y_ji >= x_i0, every other customer precedes the last one
func lastFollowsConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		expr := milp.NewLinearExpr().
			Add(state.x(arc.From, Depot)).
			AddTerm(state.y(arc.To, arc.From), -1)
		state.add("last_follows", expr, milp.LessOrEqual, 0, arc.From, arc.To)
	}
}

// sum_k t_ijk + x_ij = y_ij
func successorCountConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		i, j := arc.From, arc.To
		expr := milp.NewLinearExpr()
		for k := 1; k < state.n; k++ {
			if k != i && k != j {
				expr.Add(state.f.T[Triple{I: i, J: j, K: k}])
			}
		}
		expr.Add(state.x(i, j)).AddTerm(state.y(i, j), -1)
		state.add("successor_count", expr, milp.Equal, 0, i, j)
	}
}

// x_0k + sum_i t_ijk = y_kj
func predecessorCountConstraints(state *buildState) {
	for _, arc := range state.nonDepotPairs() {
		k, j := arc.From, arc.To
		expr := milp.NewLinearExpr().Add(state.x(Depot, k))
		for i := 1; i < state.n; i++ {
			if i != j && i != k {
				expr.Add(state.f.T[Triple{I: i, J: j, K: k}])
			}
		}
		expr.AddTerm(state.y(k, j), -1)
		state.add("predecessor_count", expr, milp.Equal, 0, k, j)
	}
}
