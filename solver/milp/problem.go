// Package milp is a pure-Go mixed-integer linear program solver: a
// single-threaded branch-and-bound driver over gonum's primal simplex. It
// serves as the fallback MILP backend for components that pose small
// LCP-as-MIP or separation subproblems and would rather not carry the HiGHS
// cgo dependency for them.
package milp

import "gonum.org/v1/gonum/mat"

// Problem is a builder for a mixed-integer linear program: add variables,
// then constraints referencing those variables, then Compile it into the
// coefficient-vector form the branch-and-bound driver consumes.
type Problem struct {
	Variables    []*Variable
	Inequalities []Inequality
	Equalities   []Equality
}

// Variable is a column of the program: its objective coefficient and
// whether it is constrained to integer values.
type Variable struct {
	Coefficient float64
	Integer     bool
}

// Expression is a single coefficient*variable term of a constraint's
// left-hand side.
type Expression struct {
	Coef     float64
	Variable *Variable
}

// Inequality is a constraint sum(expressions) <= SmallerThan.
type Inequality struct {
	Expressions []Expression
	SmallerThan float64
}

// Equality is a constraint sum(expressions) == EqualTo.
type Equality struct {
	Expressions []Expression
	EqualTo     float64
}

func NewProblem() Problem {
	return Problem{}
}

// AddVariable adds a variable and returns a reference to it for use in
// constraint expressions.
func (p *Problem) AddVariable(coef float64, integer bool) *Variable {
	v := Variable{Coefficient: coef, Integer: integer}
	p.Variables = append(p.Variables, &v)
	return &v
}

func (p *Problem) AddEquality(expr []Expression, equalTo float64) {
	if len(expr) == 0 {
		panic("must add expressions")
	}
	for _, e := range expr {
		if !p.checkExpression(e) {
			panic("provided expression contains a variable that has not been declared to this problem yet")
		}
	}
	p.Equalities = append(p.Equalities, Equality{Expressions: expr, EqualTo: equalTo})
}

func (p *Problem) AddInequality(expr []Expression, smallerThan float64) {
	if len(expr) == 0 {
		panic("must add expressions")
	}
	for _, e := range expr {
		if !p.checkExpression(e) {
			panic("provided expression contains a variable that has not been declared to this problem yet")
		}
	}
	p.Inequalities = append(p.Inequalities, Inequality{Expressions: expr, SmallerThan: smallerThan})
}

func (p *Problem) checkExpression(e Expression) bool {
	for _, v := range p.Variables {
		if v == e.Variable {
			return true
		}
	}
	return false
}

// varIndex returns the column index of v within p.Variables.
func (p *Problem) varIndex(v *Variable) int {
	for i, pv := range p.Variables {
		if pv == v {
			return i
		}
	}
	panic("variable not registered with this problem")
}

// Compile flattens the builder's expressions into the dense c/A/b/G/h form
// used by the branch-and-bound driver.
func (p *Problem) Compile() (c []float64, A *mat.Dense, b []float64, G *mat.Dense, h []float64, integer []bool) {
	n := len(p.Variables)
	c = make([]float64, n)
	integer = make([]bool, n)
	for i, v := range p.Variables {
		c[i] = v.Coefficient
		integer[i] = v.Integer
	}

	if len(p.Equalities) > 0 {
		aData := make([]float64, len(p.Equalities)*n)
		b = make([]float64, len(p.Equalities))
		for i, eq := range p.Equalities {
			for _, e := range eq.Expressions {
				aData[i*n+p.varIndex(e.Variable)] += e.Coef
			}
			b[i] = eq.EqualTo
		}
		A = mat.NewDense(len(p.Equalities), n, aData)
	}

	if len(p.Inequalities) > 0 {
		gData := make([]float64, len(p.Inequalities)*n)
		h = make([]float64, len(p.Inequalities))
		for i, ineq := range p.Inequalities {
			for _, e := range ineq.Expressions {
				gData[i*n+p.varIndex(e.Variable)] += e.Coef
			}
			h[i] = ineq.SmallerThan
		}
		G = mat.NewDense(len(p.Inequalities), n, gData)
	}

	return
}
