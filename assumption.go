package smg

import (
	"github.com/benbjohnson/smg/c"
)

// BinaryRelationResult describes the outcome of a comparison and what each
// outcome implies about the operands.
type BinaryRelationResult struct {
	Op        c.BinaryOp
	Left      Value
	Right     Value
	LeftType  *c.Type
	RightType *c.Type

	IsTrue  bool
	IsFalse bool

	TrueImpliesEq   bool
	TrueImpliesNeq  bool
	FalseImpliesEq  bool
	FalseImpliesNeq bool
}

// IsDecided returns true if the comparison has a single outcome.
func (r *BinaryRelationResult) IsDecided() bool { return r.IsTrue || r.IsFalse }

// ImpliesEq returns true if the given outcome implies equal operands.
func (r *BinaryRelationResult) ImpliesEq(truth bool) bool {
	if truth {
		return r.TrueImpliesEq
	}
	return r.FalseImpliesEq
}

// ImpliesNeq returns true if the given outcome implies different operands.
func (r *BinaryRelationResult) ImpliesNeq(truth bool) bool {
	if truth {
		return r.TrueImpliesNeq
	}
	return r.FalseImpliesNeq
}

// AssumptionResult is one branch of an evaluated condition. Value is True,
// Zero or Unknown. Relation is nil if either operand was unknown.
type AssumptionResult struct {
	Value    Value
	State    *HeapState
	Relation *BinaryRelationResult
}

// AssumptionResults holds the branches of an evaluated condition.
type AssumptionResults []AssumptionResult

// RelationFor returns the relation recorded for the branch ending in state.
func (a AssumptionResults) RelationFor(state *HeapState) *BinaryRelationResult {
	for _, r := range a {
		if r.State == state {
			return r.Relation
		}
	}
	return nil
}

// condition normalizes expr into a comparison. Negations are folded into the
// operator and any other expression is compared against zero.
func condition(expr c.Expr) *c.BinaryExpr {
	switch e := c.StripCasts(expr).(type) {
	case *c.BinaryExpr:
		if e.Op.IsRelational() {
			return e
		}
	case *c.UnaryExpr:
		if e.Op == c.UnaryNot {
			cond := condition(e.Operand)
			return &c.BinaryExpr{Op: cond.Op.Negate(), Left: cond.Left, Right: cond.Right, T: cond.T}
		}
	}
	return notEqualsZero(expr)
}

// EvaluateAssumption decides a condition for each branch of the evaluation
// of its operands. True is returned if the condition holds, Zero if it does
// not and Unknown if it cannot be decided.
func (e *Evaluator) EvaluateAssumption(expr c.Expr, state *HeapState, edge *c.Edge) (AssumptionResults, error) {
	cond := condition(expr)

	lefts, err := e.evaluateFolded(cond.Left, state, edge)
	if err != nil {
		return nil, err
	}

	var results AssumptionResults
	for _, l := range lefts {
		rights, err := e.evaluateFolded(cond.Right, l.State, edge)
		if err != nil {
			return nil, err
		}
		for _, r := range rights {
			results = append(results, e.compare(cond, l.Value, r.Value, r.State))
		}
	}
	return results, nil
}

// evaluateFolded evaluates expr with integer arithmetic and comparisons
// folded to constants where possible since the scalar evaluator only
// represents zero precisely.
func (e *Evaluator) evaluateFolded(expr c.Expr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if !expr.Type().IsInteger() || c.IsLvalue(expr) {
		return e.Evaluate(expr, state, edge)
	}
	switch expr.(type) {
	case *c.BinaryExpr, *c.UnaryExpr, *c.CastExpr, *c.TypeIdExpr:
	default:
		return e.Evaluate(expr, state, edge)
	}

	results, err := e.explicitValues(expr, state, edge)
	if err != nil {
		return nil, err
	}
	return each(results, func(k Explicit, state *HeapState) ([]ValueResult, error) {
		if !k.Known {
			return single(Unknown, state), nil
		}
		v, state := state.InternExplicit(k.Value)
		return single(v, state), nil
	})
}

// compare decides l op r in state.
func (e *Evaluator) compare(cond *c.BinaryExpr, l, r Value, state *HeapState) AssumptionResult {
	if IsUnknown(l) || IsUnknown(r) {
		return AssumptionResult{Value: Unknown, State: state}
	}

	rel := &BinaryRelationResult{
		Op:        cond.Op,
		Left:      l,
		Right:     r,
		LeftType:  cond.Left.Type(),
		RightType: cond.Right.Type(),
	}
	switch cond.Op {
	case c.Equals:
		rel.TrueImpliesEq, rel.FalseImpliesNeq = true, true
	case c.NotEquals:
		rel.TrueImpliesNeq, rel.FalseImpliesEq = true, true
	}

	if truth, ok := e.decide(cond, l, r, state); ok {
		rel.IsTrue, rel.IsFalse = truth, !truth
	}

	result := AssumptionResult{Value: Unknown, State: state, Relation: rel}
	if rel.IsTrue {
		result.Value = True
	} else if rel.IsFalse {
		result.Value = Zero
	}
	return result
}

// decide returns the outcome of l op r if it can be determined.
func (e *Evaluator) decide(cond *c.BinaryExpr, l, r Value, state *HeapState) (truth, ok bool) {
	op := cond.Op
	lt, rt := cond.Left.Type(), cond.Right.Type()

	if lt.IsAddress() || rt.IsAddress() {
		la, lok := comparableAddress(l, state)
		ra, rok := comparableAddress(r, state)
		if !lok || !rok {
			return e.decideIdentity(op, l, r, state)
		}

		if la.Object.ID == ra.Object.ID {
			if !la.Offset.Known || !ra.Offset.Known {
				return false, false
			}
			return e.compareExplicit(op, la.Offset.Value, ra.Offset.Value, c.LongType), true
		}

		// Distinct objects never alias but are not ordered.
		if validOrNull(la.Object, state) && validOrNull(ra.Object, state) {
			switch op {
			case c.Equals:
				return false, true
			case c.NotEquals:
				return true, true
			}
		}
		return false, false
	}

	if x, ok := state.GetExplicit(l); ok {
		if y, ok := state.GetExplicit(r); ok {
			return e.compareExplicit(op, x, y, e.machine.CommonType(lt, rt)), true
		}
	}
	return e.decideIdentity(op, l, r, state)
}

// decideIdentity decides equality of unresolved values by identity and by
// the disequalities recorded in the state. Orderings are left undecided.
func (e *Evaluator) decideIdentity(op c.BinaryOp, l, r Value, state *HeapState) (truth, ok bool) {
	var equal bool
	if lid, lok := valueID(l); lok {
		if rid, rok := valueID(r); rok && lid == rid {
			equal = true
		}
	}

	switch {
	case equal:
		switch op {
		case c.Equals:
			return true, true
		case c.NotEquals:
			return false, true
		}
	case state.AreNonEqual(l, r):
		switch op {
		case c.Equals:
			return false, true
		case c.NotEquals:
			return true, true
		}
	}
	return false, false
}

// comparableAddress returns the address a compared value stands for. A
// value with an explicit binding is an offset from the null object.
func comparableAddress(v Value, state *HeapState) (Address, bool) {
	if addr, ok := state.PointsTo(v); ok {
		return addr, true
	} else if k, ok := state.GetExplicit(v); ok {
		return NewAddress(Null, k*8), true
	}
	return UnknownAddress, false
}

func validOrNull(obj *Object, state *HeapState) bool {
	return obj.Kind == NullObject || state.IsObjectValid(obj)
}

// Assume restricts state to the executions in which expr evaluates to
// truth. Branches contradicting the condition are dropped, so the result
// may be empty.
//
// Facts implied by the outcome are recorded: a disequality for operands
// that must differ, explicit bindings for operands that must be equal and,
// if enabled, the comparison as a predicate relation.
func (e *Evaluator) Assume(expr c.Expr, truth bool, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	results, err := e.EvaluateAssumption(expr, state, edge)
	if err != nil {
		return nil, err
	}

	var out []*HeapState
	for _, r := range results {
		state, rel := r.State, r.Relation
		if rel != nil {
			if (truth && rel.IsFalse) || (!truth && rel.IsTrue) {
				continue
			}
			if !rel.IsDecided() {
				if rel.ImpliesNeq(truth) {
					state = state.AddNonEquality(rel.Left, rel.Right)
				} else if rel.ImpliesEq(truth) && state.AreNonEqual(rel.Left, rel.Right) {
					continue
				}
				if e.options.TrackPredicates {
					op := rel.Op
					if !truth {
						op = op.Negate()
					}
					state = state.AddPredicateRelation(rel.Left, rel.LeftType, rel.Right, rel.RightType, op)
				}
			}
		}

		states, err := e.AssignFromAssumption(expr, truth, state, edge)
		if err != nil {
			return nil, err
		}
		out = append(out, states...)
	}
	return out, nil
}

// AssignFromAssumption strengthens state with the explicit values implied by
// expr evaluating to truth. An equality that holds binds the symbolic value of
// one side to the explicit value of the other. A condition that does not hold
// binds its operand to zero.
func (e *Evaluator) AssignFromAssumption(expr c.Expr, truth bool, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	switch x := c.StripCasts(expr).(type) {
	case *c.BinaryExpr:
		if x.Op.IsRelational() {
			if (x.Op == c.Equals && truth) || (x.Op == c.NotEquals && !truth) {
				return e.assignFromOperands(x, state, edge)
			}
			return []*HeapState{state}, nil
		}
	case *c.UnaryExpr:
		if x.Op == c.UnaryNot {
			return e.AssignFromAssumption(x.Operand, !truth, state, edge)
		}
	}

	if !truth {
		return e.bindExplicit(expr, 0, state, edge)
	}
	return []*HeapState{state}, nil
}

// assignFromOperands binds each side of an equality to the explicit value
// of the other side. The comparison is made in the common type of the
// operands, so a value the target's type cannot hold makes the branch
// infeasible and its state is dropped.
func (e *Evaluator) assignFromOperands(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	common := e.machine.CommonType(expr.Left.Type(), expr.Right.Type())
	states := []*HeapState{state}
	for _, side := range [][2]c.Expr{{expr.Left, expr.Right}, {expr.Right, expr.Left}} {
		target, source := side[0], side[1]

		var next []*HeapState
		for _, state := range states {
			values, err := e.explicitValues(source, state, edge)
			if err != nil {
				return nil, err
			}
			for _, v := range values {
				if !v.Value.Known {
					next = append(next, v.State)
					continue
				}
				k := e.machine.Truncate(v.Value.Value, common)
				t := e.machine.Truncate(k, target.Type())
				if e.machine.Truncate(t, common) != k {
					continue
				}
				bound, err := e.bindExplicit(target, t, v.State, edge)
				if err != nil {
					return nil, err
				}
				next = append(next, bound...)
			}
		}
		states = next
	}
	return states, nil
}
