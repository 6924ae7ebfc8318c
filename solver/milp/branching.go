package milp

import "math"

// BranchHeuristic selects which fractional integer variable a node branches
// on.
type BranchHeuristic int

const (
	BranchMaxFun BranchHeuristic = iota
	BranchMostInfeasible
	BranchNaive
)

// naiveBranchPoint cycles through the integer-constrained variables in
// order, starting just after whichever one was branched on last.
func (s solution) naiveBranchPoint() int {
	branchOn := 0

	if len(s.problem.bnbConstraints) == 0 {
		for i := range s.problem.integralityConstraints {
			if s.problem.integralityConstraints[i] {
				branchOn = i
			}
		}
	} else {
		lastConstraint := s.problem.bnbConstraints[len(s.problem.bnbConstraints)-1]
		lastBranchedVariable := lastConstraint.branchedVariable

		cursor := lastBranchedVariable
		for {
			if cursor == len(s.problem.c)-1 {
				cursor = -1
			}
			cursor++
			if s.problem.integralityConstraints[cursor] {
				branchOn = cursor
				break
			}
		}
	}

	return branchOn
}

// maxFunBranchPoint chooses the integer-constrained variable with the
// largest absolute objective coefficient.
func maxFunBranchPoint(c []float64, integralityConstraints []bool) int {
	if len(c) != len(integralityConstraints) {
		panic("number of variables not equal to number of integrality constraints")
	}

	var candidateValue float64
	currentCandidate := 0

	for i, v := range c {
		if integralityConstraints[i] {
			if math.Abs(v) >= candidateValue {
				currentCandidate = i
				candidateValue = math.Abs(v)
			}
		}
	}

	return currentCandidate
}

// mostInfeasibleBranchPoint chooses the integer-constrained variable whose
// current solution value has a fractional part closest to 1/2.
func mostInfeasibleBranchPoint(x []float64, integralityConstraints []bool) int {
	if len(x) != len(integralityConstraints) {
		panic("number of variables not equal to number of integrality constraints")
	}

	candidateRemainder := 1.0
	currentCandidate := 0

	for i, v := range x {
		if integralityConstraints[i] {
			_, f := math.Modf(v)
			remainder := math.Abs(0.5 - f)
			if remainder <= candidateRemainder {
				currentCandidate = i
				candidateRemainder = remainder
			}
		}
	}

	return currentCandidate
}
