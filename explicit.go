package smg

import (
	"github.com/benbjohnson/smg/c"
)

// EvaluateExplicit reduces expr to a concrete integer.
//
// Constant subexpressions are folded with the arithmetic of the machine.
// Anything else is evaluated as a scalar and resolved through the explicit
// bindings of the state. The first result is returned as primary. If the
// evaluation forked, the remaining branches are returned as deferred results
// which the caller must process on its own.
func (e *Evaluator) EvaluateExplicit(expr c.Expr, state *HeapState, edge *c.Edge) (ExplicitResult, []ExplicitResult, error) {
	results, err := e.explicitValues(expr, state, edge)
	if err != nil {
		return ExplicitResult{}, nil, err
	}
	return results[0], results[1:], nil
}

// EvaluateForcedExplicit is like EvaluateExplicit but never returns an
// unknown value. Where no value can be derived, the configured guess is
// bound into the state so that evaluating expr again on the returned state
// yields the same value. An expression that cannot be solved for the guess
// has the guess bound to each of its unknown operands in order instead, and
// evaluates to the folded result.
func (e *Evaluator) EvaluateForcedExplicit(expr c.Expr, state *HeapState, edge *c.Edge) (ExplicitResult, []ExplicitResult, error) {
	results, err := e.forcedExplicitValues(expr, state, edge)
	if err != nil {
		return ExplicitResult{}, nil, err
	}
	return results[0], results[1:], nil
}

func (e *Evaluator) forcedExplicitValues(expr c.Expr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	results, err := e.explicitValues(expr, state, edge)
	if err != nil {
		return nil, err
	}

	guess := e.machine.Truncate(e.options.ForcedGuess, expr.Type())
	return each(results, func(k Explicit, state *HeapState) ([]ExplicitResult, error) {
		if k.Known {
			return single(k, state), nil
		}

		evalLog.Debugf("guessing %d for %s", guess, expr)
		states, err := e.bindExplicit(expr, guess, state, edge)
		if err != nil {
			return nil, err
		}

		var out []ExplicitResult
		for _, state := range states {
			if results, err := e.explicitValues(expr, state, edge); err != nil {
				return nil, err
			} else if known(results) {
				out = append(out, results...)
				continue
			}

			forced, err := e.forceOperands(expr, state, edge)
			if err != nil {
				return nil, err
			}
			for _, state := range forced {
				results, err := e.explicitValues(expr, state, edge)
				if err != nil {
					return nil, err
				}
				for _, r := range results {
					if !r.Value.Known {
						r.Value = KnownExplicit(guess)
					}
					out = append(out, r)
				}
			}
		}
		return out, nil
	})
}

// forceOperands forces the integer operands of expr, left to right, and
// returns the resulting states.
func (e *Evaluator) forceOperands(expr c.Expr, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	var operands []c.Expr
	switch expr := expr.(type) {
	case *c.BinaryExpr:
		operands = []c.Expr{expr.Left, expr.Right}
	case *c.UnaryExpr:
		if expr.Op == c.UnaryAmper || expr.Op == c.UnarySizeof || expr.Op == c.UnaryAlignof {
			return []*HeapState{state}, nil
		}
		operands = []c.Expr{expr.Operand}
	case *c.CastExpr:
		operands = []c.Expr{expr.Operand}
	}

	states := []*HeapState{state}
	for _, operand := range operands {
		if !operand.Type().IsInteger() {
			continue
		}
		var next []*HeapState
		for _, state := range states {
			results, err := e.forcedExplicitValues(operand, state, edge)
			if err != nil {
				return nil, err
			}
			for _, r := range results {
				next = append(next, r.State)
			}
		}
		states = next
	}
	return states, nil
}

// known returns true if every result has a known value.
func known(results []ExplicitResult) bool {
	for _, r := range results {
		if !r.Value.Known {
			return false
		}
	}
	return true
}

// explicitValues returns the concrete values of expr, one per branch.
func (e *Evaluator) explicitValues(expr c.Expr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	switch expr := expr.(type) {
	case *c.IntLiteral:
		return single(KnownExplicit(e.machine.Truncate(expr.Value, expr.T)), state), nil
	case *c.CharLiteral:
		return single(KnownExplicit(e.machine.Truncate(expr.Value, expr.T)), state), nil

	case *c.IdExpr:
		if expr.Decl.Kind == c.EnumeratorDecl {
			return single(KnownExplicit(expr.Decl.Value), state), nil
		}

	case *c.TypeIdExpr:
		if expr.Op == c.AlignofType {
			return single(KnownExplicit(e.machine.AlignofBits(expr.Operand)/8), state), nil
		}
		size, err := e.SizeofBits(expr.Operand, state, edge, nil)
		if err != nil {
			return nil, err
		}
		return single(KnownExplicit(size/8), state), nil

	case *c.UnaryExpr:
		return e.unaryExplicit(expr, state, edge)

	case *c.BinaryExpr:
		if expr.Op.IsRelational() {
			return e.relationalExplicit(expr, state, edge)
		} else if !expr.Left.Type().IsAddress() && !expr.Right.Type().IsAddress() {
			return e.arithmeticExplicit(expr, state, edge)
		}

	case *c.CastExpr:
		if expr.T.IsInteger() && expr.Operand.Type().IsInteger() {
			results, err := e.explicitValues(expr.Operand, state, edge)
			if err != nil {
				return nil, err
			}
			for i, r := range results {
				if r.Value.Known {
					results[i].Value = KnownExplicit(e.machine.Truncate(r.Value.Value, expr.T))
				}
			}
			return results, nil
		}
	}
	return e.explicitFromValue(expr, state, edge)
}

// explicitFromValue evaluates expr and looks up the explicit binding of
// each resulting value.
func (e *Evaluator) explicitFromValue(expr c.Expr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	values, err := e.Evaluate(expr, state, edge)
	if err != nil {
		return nil, err
	}
	results := make([]ExplicitResult, len(values))
	for i, r := range values {
		results[i] = ExplicitResult{Value: UnknownExplicit, State: r.State}
		if k, ok := r.State.GetExplicit(r.Value); ok {
			results[i].Value = KnownExplicit(k)
		} else if av, ok := r.Value.(AddressValue); ok && av.Address.Object == Null && av.Address.Offset.Known {
			// An integer converted to a pointer.
			results[i].Value = KnownExplicit(av.Address.Offset.Value / 8)
		}
	}
	return results, nil
}

func (e *Evaluator) unaryExplicit(expr *c.UnaryExpr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	switch expr.Op {
	case c.UnarySizeof:
		sizes, err := e.EvaluateSizeof(expr.Operand.Type(), state, edge, expr.Operand)
		if err != nil {
			return nil, err
		}
		for i := range sizes {
			if sizes[i].Value.Known {
				sizes[i].Value = KnownExplicit(sizes[i].Value.Value / 8)
			}
		}
		return sizes, nil

	case c.UnaryAlignof:
		return single(KnownExplicit(e.machine.AlignofBits(expr.Operand.Type())/8), state), nil

	case c.UnaryNot:
		return e.relationalExplicit(equalsZero(expr.Operand), state, edge)

	case c.UnaryAmper:
		return e.explicitFromValue(expr, state, edge)
	}

	if !expr.Operand.Type().IsInteger() {
		return e.explicitFromValue(expr, state, edge)
	}

	results, err := e.explicitValues(expr.Operand, state, edge)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		if !r.Value.Known {
			continue
		}
		v := r.Value.Value
		switch expr.Op {
		case c.UnaryMinus:
			v = -v
		case c.UnaryTilde:
			v = ^v
		}
		results[i].Value = KnownExplicit(e.machine.Truncate(v, expr.T))
	}
	return results, nil
}

// relationalExplicit evaluates a comparison to 1 or 0.
func (e *Evaluator) relationalExplicit(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	results, err := e.EvaluateAssumption(expr, state, edge)
	if err != nil {
		return nil, err
	}
	out := make([]ExplicitResult, len(results))
	for i, r := range results {
		out[i] = ExplicitResult{Value: UnknownExplicit, State: r.State}
		switch r.Value.(type) {
		case ZeroValue:
			out[i].Value = KnownExplicit(0)
		case SymbolicValue:
			out[i].Value = KnownExplicit(1)
		}
	}
	return out, nil
}

// arithmeticExplicit folds a binary arithmetic expression over known
// operands. Operands are converted to their common type first.
func (e *Evaluator) arithmeticExplicit(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	typ := e.machine.CommonType(expr.Left.Type(), expr.Right.Type())
	if expr.Op == c.ShiftLeft || expr.Op == c.ShiftRight {
		typ = e.machine.Promote(expr.Left.Type())
	}
	if !typ.IsInteger() {
		return e.explicitFromValue(expr, state, edge)
	}

	lefts, err := e.explicitValues(expr.Left, state, edge)
	if err != nil {
		return nil, err
	}
	return each(lefts, func(l Explicit, state *HeapState) ([]ExplicitResult, error) {
		rights, err := e.explicitValues(expr.Right, state, edge)
		if err != nil {
			return nil, err
		}
		for i, r := range rights {
			rights[i].Value = e.fold(expr.Op, l, r.Value, typ, expr.T)
		}
		return rights, nil
	})
}

// fold applies op to l and r in typ and converts the result to result.
// Division by zero and out of range shifts are unknown.
func (e *Evaluator) fold(op c.BinaryOp, l, r Explicit, typ, result *c.Type) Explicit {
	if !l.Known || !r.Known {
		return UnknownExplicit
	}

	x, y := e.machine.Truncate(l.Value, typ), e.machine.Truncate(r.Value, typ)
	unsigned := !e.machine.IsSigned(typ)

	var v int64
	switch op {
	case c.Plus:
		v = x + y
	case c.Minus:
		v = x - y
	case c.Multiply:
		v = x * y
	case c.Divide, c.Modulo:
		if y == 0 {
			return UnknownExplicit
		}
		switch {
		case unsigned && op == c.Divide:
			v = int64(uint64(x) / uint64(y))
		case unsigned:
			v = int64(uint64(x) % uint64(y))
		case op == c.Divide:
			v = x / y
		default:
			v = x % y
		}
	case c.ShiftLeft, c.ShiftRight:
		bits, ok := e.machine.SizeofBits(typ)
		if !ok || r.Value < 0 || r.Value >= bits {
			return UnknownExplicit
		}
		switch {
		case op == c.ShiftLeft:
			v = x << uint(r.Value)
		case unsigned:
			v = int64(uint64(x) >> uint(r.Value))
		default:
			v = x >> uint(r.Value)
		}
	case c.BinaryAnd:
		v = x & y
	case c.BinaryOr:
		v = x | y
	case c.BinaryXor:
		v = x ^ y
	default:
		return UnknownExplicit
	}
	return KnownExplicit(e.machine.Truncate(v, result))
}

// compareExplicit decides x op y with the signedness of typ.
func (e *Evaluator) compareExplicit(op c.BinaryOp, x, y int64, typ *c.Type) bool {
	var cmp int
	if typ.IsInteger() && !e.machine.IsSigned(typ) {
		ux, uy := uint64(e.machine.Truncate(x, typ)), uint64(e.machine.Truncate(y, typ))
		switch {
		case ux < uy:
			cmp = -1
		case ux > uy:
			cmp = 1
		}
	} else {
		cmp = compareInt64(x, y)
	}

	switch op {
	case c.Equals:
		return cmp == 0
	case c.NotEquals:
		return cmp != 0
	case c.LessThan:
		return cmp < 0
	case c.LessEqual:
		return cmp <= 0
	case c.GreaterThan:
		return cmp > 0
	case c.GreaterEqual:
		return cmp >= 0
	}
	assert(false, "compare: invalid operator: %s", op)
	return false
}

// bindExplicit returns the states in which expr is known to evaluate to k.
//
// Lvalues holding an unbound symbolic value have the value bound to k; a zero
// is also written back into the storage. Negation, complement, casts that
// preserve k and addition or subtraction of a known operand are inverted and
// the operand is bound instead. Other expressions leave the state unchanged.
// Binding is idempotent.
func (e *Evaluator) bindExplicit(expr c.Expr, k int64, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	switch expr := expr.(type) {
	case *c.CastExpr:
		if typ := expr.Operand.Type(); typ.IsInteger() && e.machine.Truncate(k, typ) == k {
			return e.bindExplicit(expr.Operand, k, state, edge)
		}
		return []*HeapState{state}, nil

	case *c.UnaryExpr:
		switch expr.Op {
		case c.UnaryAmper:
			assert(false, "cannot bind an explicit value to an address: %s", expr)
		case c.UnaryMinus:
			return e.bindExplicit(expr.Operand, e.machine.Truncate(-k, expr.Operand.Type()), state, edge)
		case c.UnaryTilde:
			return e.bindExplicit(expr.Operand, e.machine.Truncate(^k, expr.Operand.Type()), state, edge)
		case c.UnaryPlus:
			return e.bindExplicit(expr.Operand, k, state, edge)
		case c.UnaryNot:
			if k != 0 {
				return e.bindExplicit(expr.Operand, 0, state, edge)
			}
		}
		return []*HeapState{state}, nil

	case *c.BinaryExpr:
		if expr.Op == c.Plus || expr.Op == c.Minus {
			return e.bindOperand(expr, k, state, edge)
		}
		return []*HeapState{state}, nil

	case *c.IdExpr, *c.FieldRef, *c.ArraySubscript, *c.PointerExpr:
		if c.IsLvalue(expr) {
			return e.bindLvalue(expr, k, state, edge)
		}
	}
	return []*HeapState{state}, nil
}

// bindOperand binds the unknown operand of l+r or l-r given the result k.
func (e *Evaluator) bindOperand(expr *c.BinaryExpr, k int64, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	if expr.Left.Type().IsAddress() || expr.Right.Type().IsAddress() {
		return []*HeapState{state}, nil
	}

	var out []*HeapState
	rights, err := e.explicitValues(expr.Right, state, edge)
	if err != nil {
		return nil, err
	}
	for _, r := range rights {
		if r.Value.Known {
			v := k - r.Value.Value
			if expr.Op == c.Minus {
				v = k + r.Value.Value
			}
			states, err := e.bindExplicit(expr.Left, e.machine.Truncate(v, expr.Left.Type()), r.State, edge)
			if err != nil {
				return nil, err
			}
			out = append(out, states...)
			continue
		}

		lefts, err := e.explicitValues(expr.Left, r.State, edge)
		if err != nil {
			return nil, err
		}
		for _, l := range lefts {
			if !l.Value.Known {
				out = append(out, l.State)
				continue
			}
			v := k - l.Value.Value
			if expr.Op == c.Minus {
				v = l.Value.Value - k
			}
			states, err := e.bindExplicit(expr.Right, e.machine.Truncate(v, expr.Right.Type()), l.State, edge)
			if err != nil {
				return nil, err
			}
			out = append(out, states...)
		}
	}
	return out, nil
}

// bindLvalue binds the value stored in an lvalue to k.
func (e *Evaluator) bindLvalue(expr c.Expr, k int64, state *HeapState, edge *c.Edge) ([]*HeapState, error) {
	addrs, err := e.EvaluateLValue(expr, state, edge)
	if err != nil {
		return nil, err
	}

	var out []*HeapState
	for _, a := range addrs {
		if a.Value.IsUnknown() {
			out = append(out, a.State)
			continue
		}

		r, err := e.read(a.Value, expr.Type(), a.State, edge, expr)
		if err != nil {
			return nil, err
		}
		state := r.State
		if _, ok := state.GetExplicit(r.Value); ok {
			out = append(out, state)
			continue
		} else if expr.Type().IsAddress() && (k != 0 || state.IsPointer(r.Value)) {
			out = append(out, state)
			continue
		}

		id, ok := valueID(Identity(r.Value))
		if ok && id != zeroID && id != trueID {
			state = state.PutExplicit(id, k)
		}

		// Zero is stored as such. A value that could not be read is
		// replaced by the constant.
		if k == 0 || !ok {
			size, err := e.SizeofBits(expr.Type(), state, edge, expr)
			if err != nil {
				return nil, err
			}
			state = e.WriteBits(a.Value, size, ExplicitValue{Value: k}, state)
		}
		out = append(out, state)
	}
	return out, nil
}
