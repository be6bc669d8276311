package milp

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

type VarKind int

const (
	Continuous VarKind = iota
	Binary
	Integer
)

func (kind VarKind) String() string {
	switch kind {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	case Integer:
		return "integer"
	}
	return fmt.Sprintf("VarKind(%d)", int(kind))
}

type Sense int

const (
	LessOrEqual Sense = iota
	GreaterOrEqual
	Equal
)

func (sense Sense) String() string {
	switch sense {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", int(sense))
}

// Var is the index of a variable inside the model that created it.
type Var int

func (v Var) Index() int {
	return int(v)
}

type Term struct {
	Var  Var
	Coef float64
}

// LinearExpr accumulates weighted variables plus a constant.
type LinearExpr struct {
	terms    []Term
	constant float64
}

func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

func (expr *LinearExpr) AddTerm(v Var, coef float64) *LinearExpr {
	expr.terms = append(expr.terms, Term{Var: v, Coef: coef})
	return expr
}

func (expr *LinearExpr) Add(v Var) *LinearExpr {
	return expr.AddTerm(v, 1)
}

func (expr *LinearExpr) AddSum(vars ...Var) *LinearExpr {
	for _, v := range vars {
		expr.AddTerm(v, 1)
	}
	return expr
}

func (expr *LinearExpr) AddWeightedSum(vars []Var, coefs []float64) *LinearExpr {
	for i, v := range vars {
		expr.AddTerm(v, coefs[i])
	}
	return expr
}

func (expr *LinearExpr) AddConstant(constant float64) *LinearExpr {
	expr.constant += constant
	return expr
}

func (expr *LinearExpr) Terms() []Term {
	return slices.Clone(expr.terms)
}

func (expr *LinearExpr) Constant() float64 {
	return expr.constant
}

type Constraint struct {
	Name   string
	Family string
	Terms  []Term
	Sense  Sense
	RHS    float64
}

// Activity evaluates the left-hand side of the constraint.
func (constraint Constraint) Activity(values []float64) float64 {
	return lo.SumBy(constraint.Terms, func(term Term) float64 {
		return term.Coef * values[term.Var]
	})
}

func (constraint Constraint) Satisfied(values []float64, tol float64) bool {
	activity := constraint.Activity(values)
	switch constraint.Sense {
	case LessOrEqual:
		return activity <= constraint.RHS+tol
	case GreaterOrEqual:
		return activity >= constraint.RHS-tol
	default:
		return math.Abs(activity-constraint.RHS) <= tol
	}
}

type variable struct {
	name   string
	kind   VarKind
	lb, ub float64
}

// Model is an in-memory mixed-integer linear program. Misuse (unknown
// variables, duplicated names) is recorded as the first error and reported by
// Err, so builders can chain calls without checking every step.
type Model struct {
	name        string
	vars        []variable
	names       map[string]Var
	constraints []Constraint
	families    []string
	familyRows  map[string][]int
	objective   []Term
	hints       map[Var]float64
	err         error
}

func NewModel(name string) *Model {
	return &Model{
		name:       name,
		names:      make(map[string]Var),
		familyRows: make(map[string][]int),
		hints:      make(map[Var]float64),
	}
}

func (model *Model) Name() string {
	return model.name
}

func (model *Model) Err() error {
	return model.err
}

func (model *Model) fail(format string, args ...any) {
	if model.err == nil {
		model.err = fmt.Errorf(format, args...)
	}
}

func (model *Model) valid(v Var) bool {
	return int(v) >= 0 && int(v) < len(model.vars)
}

func (model *Model) AddVar(name string, kind VarKind, lb, ub float64) Var {
	if existing, ok := model.names[name]; ok {
		model.fail("duplicated variable name %q", name)
		return existing
	}
	if kind == Binary {
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	}
	if lb > ub {
		model.fail("variable %q has empty domain [%v, %v]", name, lb, ub)
	}

	v := Var(len(model.vars))
	model.vars = append(model.vars, variable{name: name, kind: kind, lb: lb, ub: ub})
	model.names[name] = v
	return v
}

func (model *Model) NumVars() int {
	return len(model.vars)
}

func (model *Model) NumConstraints() int {
	return len(model.constraints)
}

func (model *Model) VarName(v Var) string {
	if !model.valid(v) {
		return fmt.Sprintf("<invalid %d>", int(v))
	}
	return model.vars[v].name
}

func (model *Model) Kind(v Var) VarKind {
	return model.vars[v].kind
}

func (model *Model) Bounds(v Var) (lb, ub float64) {
	return model.vars[v].lb, model.vars[v].ub
}

func (model *Model) Lookup(name string) (Var, bool) {
	v, ok := model.names[name]
	return v, ok
}

// IsContinuous reports whether no variable carries an integrality requirement.
func (model *Model) IsContinuous() bool {
	return !lo.ContainsBy(model.vars, func(v variable) bool {
		return v.kind != Continuous
	})
}

// AddConstraint moves the constant of expr to the right-hand side and merges
// repeated variables before storing the row under family.
func (model *Model) AddConstraint(family, name string, expr *LinearExpr, sense Sense, rhs float64) {
	merged := make(map[Var]float64)
	order := make([]Var, 0, len(expr.terms))
	for _, term := range expr.terms {
		if !model.valid(term.Var) {
			model.fail("constraint %q references unknown variable %d", name, int(term.Var))
			return
		}
		if _, seen := merged[term.Var]; !seen {
			order = append(order, term.Var)
		}
		merged[term.Var] += term.Coef
	}

	terms := lo.FilterMap(order, func(v Var, _ int) (Term, bool) {
		return Term{Var: v, Coef: merged[v]}, merged[v] != 0
	})

	if _, ok := model.familyRows[family]; !ok {
		model.families = append(model.families, family)
	}
	model.familyRows[family] = append(model.familyRows[family], len(model.constraints))
	model.constraints = append(model.constraints, Constraint{
		Name:   name,
		Family: family,
		Terms:  terms,
		Sense:  sense,
		RHS:    rhs - expr.constant,
	})
}

func (model *Model) Constraints() []Constraint {
	return model.constraints
}

// Families lists constraint family names in insertion order.
func (model *Model) Families() []string {
	return slices.Clone(model.families)
}

func (model *Model) Family(family string) []Constraint {
	return lo.Map(model.familyRows[family], func(row int, _ int) Constraint {
		return model.constraints[row]
	})
}

func (model *Model) FamilySizes() map[string]int {
	return lo.MapValues(model.familyRows, func(rows []int, _ string) int {
		return len(rows)
	})
}

func (model *Model) Minimize(expr *LinearExpr) {
	for _, term := range expr.terms {
		if !model.valid(term.Var) {
			model.fail("objective references unknown variable %d", int(term.Var))
			return
		}
	}
	model.objective = expr.Terms()
}

func (model *Model) Objective() []Term {
	return slices.Clone(model.objective)
}

// ObjectiveCoefficients returns the dense objective vector.
func (model *Model) ObjectiveCoefficients() []float64 {
	coefs := make([]float64, len(model.vars))
	for _, term := range model.objective {
		coefs[term.Var] += term.Coef
	}
	return coefs
}

func (model *Model) ObjectiveValue(values []float64) float64 {
	return lo.SumBy(model.objective, func(term Term) float64 {
		return term.Coef * values[term.Var]
	})
}

//** Warm-start hints

func (model *Model) SetHint(v Var, value float64) {
	if !model.valid(v) {
		model.fail("hint for unknown variable %d", int(v))
		return
	}
	model.hints[v] = value
}

func (model *Model) ClearHints() {
	clear(model.hints)
}

func (model *Model) HasHints() bool {
	return len(model.hints) > 0
}

// Hints returns the hinted variables sorted by index.
func (model *Model) Hints() []Term {
	hints := lo.MapToSlice(model.hints, func(v Var, value float64) Term {
		return Term{Var: v, Coef: value}
	})
	slices.SortFunc(hints, func(a, b Term) int {
		return int(a.Var) - int(b.Var)
	})
	return hints
}

//** Assignment checking

type Violation struct {
	Name     string
	Family   string
	Activity float64
	Sense    Sense
	Bound    float64
}

func (violation Violation) String() string {
	return fmt.Sprintf("%v: %v %v %v", violation.Name, violation.Activity, violation.Sense, violation.Bound)
}

// Check lists every bound, integrality and constraint violated by values.
func (model *Model) Check(values []float64, tol float64) []Violation {
	if len(values) != len(model.vars) {
		return []Violation{{Name: "assignment", Family: "length", Activity: float64(len(values)), Sense: Equal, Bound: float64(len(model.vars))}}
	}

	violations := []Violation{}
	for i, v := range model.vars {
		value := values[i]
		if value < v.lb-tol {
			violations = append(violations, Violation{Name: v.name, Family: "bounds", Activity: value, Sense: GreaterOrEqual, Bound: v.lb})
		}
		if value > v.ub+tol {
			violations = append(violations, Violation{Name: v.name, Family: "bounds", Activity: value, Sense: LessOrEqual, Bound: v.ub})
		}
		if v.kind != Continuous && math.Abs(value-math.Round(value)) > tol {
			violations = append(violations, Violation{Name: v.name, Family: "integrality", Activity: value, Sense: Equal, Bound: math.Round(value)})
		}
	}

	for _, constraint := range model.constraints {
		if !constraint.Satisfied(values, tol) {
			violations = append(violations, Violation{
				Name:     constraint.Name,
				Family:   constraint.Family,
				Activity: constraint.Activity(values),
				Sense:    constraint.Sense,
				Bound:    constraint.RHS,
			})
		}
	}
	return violations
}
