package milp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Terms per line in the LP file, continuation lines start with a space.
const lpTermsPerLine = 8

// ToLP renders the model in CPLEX LP format.
func (model *Model) ToLP() string {
	var builder strings.Builder
	model.WriteLP(&builder) // strings.Builder never fails
	return builder.String()
}

func (model *Model) WriteLP(w io.Writer) error {
	if model.err != nil {
		return model.err
	}

	out := bufio.NewWriter(w)
	fmt.Fprintf(out, "\\ %v\n", model.name)

	//** Objective
	out.WriteString("Minimize\n obj:")
	objective := lo.Filter(model.objective, func(term Term, _ int) bool { return term.Coef != 0 })
	if len(objective) == 0 && len(model.vars) > 0 {
		objective = []Term{{Var: 0, Coef: 0}}
	}
	model.writeTerms(out, objective)
	out.WriteString("\n")

	//** Constraints
	out.WriteString("Subject To\n")
	for _, constraint := range model.constraints {
		fmt.Fprintf(out, " %v:", constraint.Name)
		if len(constraint.Terms) == 0 {
			// LP format needs a variable on every row
			model.writeTerms(out, []Term{{Var: 0, Coef: 0}})
		} else {
			model.writeTerms(out, constraint.Terms)
		}
		fmt.Fprintf(out, " %v %v\n", constraint.Sense, formatNumber(constraint.RHS))
	}

	//** Bounds
	out.WriteString("Bounds\n")
	for _, v := range model.vars {
		if v.kind == Binary {
			continue
		}
		switch {
		case v.lb == v.ub:
			fmt.Fprintf(out, " %v = %v\n", v.name, formatNumber(v.lb))
		case math.IsInf(v.ub, 1):
			fmt.Fprintf(out, " %v >= %v\n", v.name, formatNumber(v.lb))
		default:
			fmt.Fprintf(out, " %v <= %v <= %v\n", formatNumber(v.lb), v.name, formatNumber(v.ub))
		}
	}

	//** Integrality
	writeSection := func(header string, kind VarKind) {
		vars := lo.Filter(model.vars, func(v variable, _ int) bool { return v.kind == kind })
		if len(vars) == 0 {
			return
		}
		out.WriteString(header + "\n")
		for _, chunk := range lo.Chunk(vars, lpTermsPerLine) {
			names := lo.Map(chunk, func(v variable, _ int) string { return v.name })
			fmt.Fprintf(out, " %v\n", strings.Join(names, " "))
		}
	}
	writeSection("Binaries", Binary)
	writeSection("Generals", Integer)

	out.WriteString("End\n")
	return out.Flush()
}

func (model *Model) writeTerms(out *bufio.Writer, terms []Term) {
	for i, term := range terms {
		if i > 0 && i%lpTermsPerLine == 0 {
			out.WriteString("\n ")
		}
		sign := "+"
		coef := term.Coef
		if coef < 0 {
			sign, coef = "-", -coef
		}
		if coef == 1 {
			fmt.Fprintf(out, " %v %v", sign, model.vars[term.Var].name)
		} else {
			fmt.Fprintf(out, " %v %v %v", sign, formatNumber(coef), model.vars[term.Var].name)
		}
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}
