package model

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/limaJavier/ctspd/pkg/milp"
)

type buildState struct {
	input ModelInput
	f     *Formulation
	model *milp.Model
	n     int
	kind  milp.VarKind // kind of the 0-1 variables, continuous when relaxed
}

// Build creates the formulation of variant over input. Families are added in a
// fixed order, so two builds of the same input yield identical models.
func Build(input ModelInput, variant Variant, relax bool) (*Formulation, error) {
	input, err := input.withLookups()
	if err != nil {
		return nil, &ModelBuildError{Variant: variant, Err: err}
	}
	if variant.Strengthening == Ha && variant.Kind != Sequencing {
		return nil, &ModelBuildError{Variant: variant, Err: fmt.Errorf("Ha strengthening needs position labels")}
	}

	kind := milp.Binary
	if relax {
		kind = milp.Continuous
	}

	f := &Formulation{
		Variant: Variant{Kind: variant.Kind, Strengthening: None},
		Relaxed: relax,
		Input:   input,
		Model:   milp.NewModel(fmt.Sprintf("ctsp_%v_%v", input.Name, variant.Alias())),
		X:       make(map[Arc]milp.Var),
		Y:       make(map[Arc]milp.Var),
		T:       make(map[Triple]milp.Var),
	}
	state := &buildState{input: input, f: f, model: f.Model, n: input.Nodes(), kind: kind}

	//** Variables
	state.arcVariables()
	switch {
	case variant.HasLabels():
		state.labelVariables()
	case variant.HasPrecedence():
		state.precedenceVariables()
		if variant.HasTriples() {
			state.tripleVariables()
		}
	}

	//** Objective
	objective := milp.NewLinearExpr()
	for _, arc := range f.Arcs {
		objective.AddTerm(f.X[arc], input.Distances[arc.From][arc.To])
	}
	f.Model.Minimize(objective)

	//** Constraints
	for _, family := range formulationFamilies(variant.Kind) {
		family(state)
	}

	if err := f.Model.Err(); err != nil {
		return nil, &ModelBuildError{Variant: variant, Err: err}
	}

	if variant.Strengthening != None {
		if err := Strengthen(f, variant.Strengthening); err != nil {
			return nil, err
		}
	}

	log.V(2).Infof("built %v: %v variables, %v constraints", f.Model.Name(), f.Model.NumVars(), f.Model.NumConstraints())
	return f, nil
}

func formulationFamilies(kind Kind) []func(state *buildState) {
	switch kind {
	case Sequencing:
		return []func(state *buildState){
			inDegreeConstraints,
			outDegreeConstraints,
			mtzConstraints,
			labelPrecedenceConstraints,
		}
	case PrecedenceA:
		return []func(state *buildState){
			inDegreeConstraints,
			outDegreeConstraints,
			arcPrecedenceConstraints,
			arcAntisymmetryConstraints,
			gpTriangleConstraints,
			gpPathConstraints,
			clusterPrecedenceConstraints,
		}
	case PrecedenceB:
		return []func(state *buildState){
			inDegreeConstraints,
			outDegreeConstraints,
			arcPrecedenceConstraints,
			precedenceTotalityConstraints,
			ssbTriangleConstraints,
			depotTwoCycleConstraints,
			clusterPrecedenceConstraints,
		}
	case PrecedenceC:
		return []func(state *buildState){
			inDegreeConstraints,
			outDegreeConstraints,
			ssbTriangleConstraints,
			tripleLinkConstraints,
			precedenceTotalityConstraints,
			firstPrecedesConstraints,
			lastFollowsConstraints,
			successorCountConstraints,
			predecessorCountConstraints,
			clusterPrecedenceConstraints,
		}
	}
	return nil
}

//** Variables

func (state *buildState) arcVariables() {
	for i := range state.n {
		for j := range state.n {
			if i == j {
				continue
			}
			arc := Arc{From: i, To: j}
			state.f.Arcs = append(state.f.Arcs, arc)
			state.f.X[arc] = state.model.AddVar(varName("x", i, j), state.kind, 0, 1)
		}
	}
}

func (state *buildState) labelVariables() {
	state.f.U = make([]milp.Var, state.n)
	for i := range state.n {
		ub := float64(state.n - 1)
		if i == Depot {
			ub = 0
		}
		state.f.U[i] = state.model.AddVar(varName("u", i), milp.Continuous, 0, ub)
	}
}

func (state *buildState) precedenceVariables() {
	for _, arc := range state.f.Arcs {
		state.f.Y[arc] = state.model.AddVar(varName("y", arc.From, arc.To), state.kind, 0, 1)
	}
}

func (state *buildState) tripleVariables() {
	for _, triple := range state.nonDepotTriples() {
		state.f.T[triple] = state.model.AddVar(varName("t", triple.I, triple.J, triple.K), state.kind, 0, 1)
	}
}

func varName(prefix string, ids ...int) string {
	parts := make([]string, 0, len(ids)+1)
	parts = append(parts, prefix)
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, "_")
}

//** Index sets

func (state *buildState) add(family string, expr *milp.LinearExpr, sense milp.Sense, rhs float64, ids ...int) {
	state.model.AddConstraint(family, varName(family, ids...), expr, sense, rhs)
}

func (state *buildState) x(i, j int) milp.Var {
	return state.f.X[Arc{From: i, To: j}]
}

func (state *buildState) y(i, j int) milp.Var {
	return state.f.Y[Arc{From: i, To: j}]
}

// nonDepotPairs is A restricted to arcs between customers.
func (state *buildState) nonDepotPairs() []Arc {
	pairs := make([]Arc, 0, len(state.f.Arcs))
	for _, arc := range state.f.Arcs {
		if arc.From != Depot && arc.To != Depot {
			pairs = append(pairs, arc)
		}
	}
	return pairs
}

func (state *buildState) nonDepotTriples() []Triple {
	triples := []Triple{}
	for i := 1; i < state.n; i++ {
		for j := 1; j < state.n; j++ {
			for k := 1; k < state.n; k++ {
				if i != j && i != k && j != k {
					triples = append(triples, Triple{I: i, J: j, K: k})
				}
			}
		}
	}
	return triples
}

// lateClusters lists the cluster pairs (p, q) with q > p + d.
func (state *buildState) lateClusters() [][2]int {
	pairs := [][2]int{}
	for p := range state.input.TotalClusters() {
		for q := range state.input.TotalClusters() {
			if state.input.Late(p, q) {
				pairs = append(pairs, [2]int{p, q})
			}
		}
	}
	return pairs
}

// latePairs lists the node pairs (i, j) where i must be visited before j.
func (state *buildState) latePairs() []Arc {
	pairs := []Arc{}
	for _, clusters := range state.lateClusters() {
		for _, i := range state.input.Clusters[clusters[0]] {
			for _, j := range state.input.Clusters[clusters[1]] {
				pairs = append(pairs, Arc{From: i, To: j})
			}
		}
	}
	return pairs
}

//** Common base

func inDegreeConstraints(state *buildState) {
	for j := range state.n {
		expr := milp.NewLinearExpr()
		for i := range state.n {
			if i != j {
				expr.Add(state.x(i, j))
			}
		}
		state.add("in_degree", expr, milp.Equal, 1, j)
	}
}

func outDegreeConstraints(state *buildState) {
	for i := range state.n {
		expr := milp.NewLinearExpr()
		for j := range state.n {
			if i != j {
				expr.Add(state.x(i, j))
			}
		}
		state.add("out_degree", expr, milp.Equal, 1, i)
	}
}
