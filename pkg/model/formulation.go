package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/ctspd/pkg/milp"
	"github.com/samber/lo"
)

type Kind int

const (
	Sequencing  Kind = iota // arc variables plus MTZ position labels
	PrecedenceA             // pairwise precedence variables, GP triangle cuts
	PrecedenceB             // pairwise precedence variables, SSB triangle cuts
	PrecedenceC             // precedence plus successor-triple variables
)

func (kind Kind) String() string {
	switch kind {
	case Sequencing:
		return "sequencing"
	case PrecedenceA:
		return "precedence-a"
	case PrecedenceB:
		return "precedence-b"
	case PrecedenceC:
		return "precedence-c"
	}
	return fmt.Sprintf("Kind(%d)", int(kind))
}

type Strengthening int

const (
	None Strengthening = iota
	ValidInequalities
	Ha // depot windows and cluster jumps over the global-M MTZ rows, sequencing only
)

type Variant struct {
	Kind          Kind
	Strengthening Strengthening
}

var aliases = map[string]Variant{
	"MTZ1":  {Sequencing, None},
	"GP1":   {PrecedenceA, None},
	"SSB1":  {PrecedenceB, None},
	"SST1":  {PrecedenceC, None},
	"MTZ2":  {Sequencing, ValidInequalities},
	"GP2":   {PrecedenceA, ValidInequalities},
	"SSB2":  {PrecedenceB, ValidInequalities},
	"SST2":  {PrecedenceC, ValidInequalities},
	"H2020": {Sequencing, Ha},
}

func ParseVariant(alias string) (Variant, error) {
	variant, ok := aliases[alias]
	if !ok {
		return Variant{}, fmt.Errorf("unknown formulation %q, expected one of %v", alias, Aliases())
	}
	return variant, nil
}

// Aliases lists the known formulation names in sorted order.
func Aliases() []string {
	names := lo.Keys(aliases)
	slices.Sort(names)
	return names
}

func (variant Variant) Alias() string {
	for alias, candidate := range aliases {
		if candidate == variant {
			return alias
		}
	}
	return fmt.Sprintf("%v/%d", variant.Kind, int(variant.Strengthening))
}

func (variant Variant) String() string {
	return variant.Alias()
}

func (variant Variant) HasLabels() bool {
	return variant.Kind == Sequencing
}

func (variant Variant) HasPrecedence() bool {
	return variant.Kind != Sequencing
}

func (variant Variant) HasTriples() bool {
	return variant.Kind == PrecedenceC
}

type Arc struct {
	From, To int
}

type Triple struct {
	I, J, K int
}

// Formulation is a built model together with handles to its variable families.
// Families a variant does not use are left empty.
type Formulation struct {
	Variant Variant
	Relaxed bool
	Input   ModelInput
	Model   *milp.Model

	Arcs []Arc // every ordered pair (i, j), i != j, i then j ascending
	X    map[Arc]milp.Var
	U    []milp.Var
	Y    map[Arc]milp.Var
	T    map[Triple]milp.Var

	solved bool
}

func (f *Formulation) Nodes() int {
	return f.Input.Nodes()
}
