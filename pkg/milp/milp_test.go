package milp

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddConstraint(t *testing.T) {
	t.Run("Merges repeated variables and moves the constant", func(t *testing.T) {
		//** Arrange
		model := NewModel("merge")
		x := model.AddVar("x", Binary, 0, 1)
		y := model.AddVar("y", Binary, 0, 1)

		//** Act
		model.AddConstraint("family", "row", NewLinearExpr().Add(x).AddTerm(y, 2).AddTerm(x, 3).AddConstant(1), LessOrEqual, 4)

		//** Assert
		require.Nil(t, model.Err())
		want := []Constraint{{
			Name:   "row",
			Family: "family",
			Terms:  []Term{{Var: x, Coef: 4}, {Var: y, Coef: 2}},
			Sense:  LessOrEqual,
			RHS:    3,
		}}
		if diff := cmp.Diff(want, model.Constraints()); diff != "" {
			t.Errorf("constraints mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Cancelling terms are dropped", func(t *testing.T) {
		model := NewModel("cancel")
		x := model.AddVar("x", Continuous, 0, 1)
		y := model.AddVar("y", Continuous, 0, 1)

		model.AddConstraint("family", "row", NewLinearExpr().Add(x).Add(y).AddTerm(x, -1), Equal, 1)

		assert.Equal(t, []Term{{Var: y, Coef: 1}}, model.Constraints()[0].Terms)
	})

	t.Run("Unknown variables are recorded as the first error", func(t *testing.T) {
		model := NewModel("unknown")
		model.AddVar("x", Continuous, 0, 1)

		model.AddConstraint("family", "row", NewLinearExpr().Add(Var(7)), Equal, 1)
		model.AddVar("x", Continuous, 0, 1)

		assert.NotNil(t, model.Err())
		assert.Contains(t, model.Err().Error(), "unknown variable")
		assert.Zero(t, model.NumConstraints())
	})
}

func TestAddVar(t *testing.T) {
	model := NewModel("vars")
	x := model.AddVar("x", Binary, -3, 5)
	u := model.AddVar("u", Continuous, 0, math.Inf(1))

	lb, ub := model.Bounds(x)
	assert.Equal(t, 0.0, lb)
	assert.Equal(t, 1.0, ub)
	assert.Equal(t, Binary, model.Kind(x))
	assert.False(t, model.IsContinuous())

	found, ok := model.Lookup("u")
	assert.True(t, ok)
	assert.Equal(t, u, found)
	assert.Equal(t, "u", model.VarName(u))

	model.AddVar("empty", Continuous, 2, 1)
	assert.NotNil(t, model.Err())
}

func TestFamilies(t *testing.T) {
	model := NewModel("families")
	x := model.AddVar("x", Binary, 0, 1)
	model.AddConstraint("b", "b_0", NewLinearExpr().Add(x), LessOrEqual, 1)
	model.AddConstraint("a", "a_0", NewLinearExpr().Add(x), LessOrEqual, 1)
	model.AddConstraint("b", "b_1", NewLinearExpr().Add(x), GreaterOrEqual, 0)

	assert.Equal(t, []string{"b", "a"}, model.Families())
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, model.FamilySizes())
	assert.Equal(t, "b_1", model.Family("b")[1].Name)
	assert.Empty(t, model.Family("missing"))
}

func TestCheck(t *testing.T) {
	//** Arrange
	model := NewModel("check")
	x := model.AddVar("x", Binary, 0, 1)
	y := model.AddVar("y", Continuous, 0, 2)
	model.AddConstraint("sum", "sum", NewLinearExpr().Add(x).Add(y), Equal, 2)
	model.AddConstraint("cap", "cap", NewLinearExpr().AddTerm(y, 2), LessOrEqual, 3)

	//** Act & Assert
	assert.Empty(t, model.Check([]float64{1, 1}, 1e-9))

	violations := model.Check([]float64{0.4, 1.6}, 1e-9)
	names := []string{}
	for _, violation := range violations {
		names = append(names, violation.Family+":"+violation.Name)
	}
	assert.ElementsMatch(t, []string{"integrality:x", "cap:cap"}, names)

	violations = model.Check([]float64{1}, 1e-9)
	require.Len(t, violations, 1)
	assert.Equal(t, "length", violations[0].Family)
}

func TestHints(t *testing.T) {
	model := NewModel("hints")
	x := model.AddVar("x", Binary, 0, 1)
	y := model.AddVar("y", Binary, 0, 1)

	model.SetHint(y, 1)
	model.SetHint(x, 0)
	assert.True(t, model.HasHints())
	assert.Equal(t, []Term{{Var: x, Coef: 0}, {Var: y, Coef: 1}}, model.Hints())

	model.ClearHints()
	assert.False(t, model.HasHints())
}

func TestToLP(t *testing.T) {
	//** Arrange
	model := NewModel("lp")
	x := model.AddVar("x_0_1", Binary, 0, 1)
	u := model.AddVar("u_1", Continuous, 0, 3)
	z := model.AddVar("u_0", Continuous, 0, 0)
	model.Minimize(NewLinearExpr().AddTerm(x, 2.5).Add(u))
	model.AddConstraint("mtz", "mtz_0_1", NewLinearExpr().Add(z).AddTerm(u, -1).AddTerm(x, 4), LessOrEqual, 3)

	//** Act
	lp := model.ToLP()

	//** Assert
	assert.True(t, strings.HasPrefix(lp, "\\ lp\nMinimize\n obj: + 2.5 x_0_1 + u_1\n"))
	assert.Contains(t, lp, " mtz_0_1: + u_0 - u_1 + 4 x_0_1 <= 3\n")
	assert.Contains(t, lp, " 0 <= u_1 <= 3\n")
	assert.Contains(t, lp, " u_0 = 0\n")
	assert.Contains(t, lp, "Binaries\n x_0_1\n")
	assert.NotContains(t, lp, "Generals")
	assert.True(t, strings.HasSuffix(lp, "End\n"))
}

func TestToLPWrapsLongRows(t *testing.T) {
	model := NewModel("wrap")
	expr := NewLinearExpr()
	for i := range 2*lpTermsPerLine + 1 {
		expr.Add(model.AddVar("v"+string(rune('a'+i)), Binary, 0, 1))
	}
	model.AddConstraint("sum", "sum", expr, Equal, 1)

	rows := strings.Split(strings.Split(model.ToLP(), "Subject To\n")[1], "Bounds")[0]
	assert.Equal(t, 3, strings.Count(rows, "\n"))
}
