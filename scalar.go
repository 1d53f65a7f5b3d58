package smg

import (
	"github.com/benbjohnson/smg/c"
)

// EvaluateScalar returns the possible values of expr. Address-typed
// expressions are delegated to the pointer evaluator.
//
// Scalar results are deliberately coarse: only values that are certainly
// zero are computed precisely, everything else is a symbolic value read from
// the graph or Unknown. Concrete arithmetic is left to the explicit
// evaluator.
func (e *Evaluator) EvaluateScalar(expr c.Expr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if expr.Type().IsAddress() {
		return e.Evaluate(expr, state, edge)
	}
	return e.scalar(expr, state, edge)
}

func (e *Evaluator) scalar(expr c.Expr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	switch expr := expr.(type) {
	case *c.IntLiteral:
		return e.literal(expr.Value, expr.T, state), nil
	case *c.CharLiteral:
		return e.literal(expr.Value, expr.T, state), nil
	case *c.FloatLiteral:
		if expr.Value == 0 {
			return single(Zero, state), nil
		}
		v, state := state.NewSymbolic()
		return single(Value(v), state), nil

	case *c.IdExpr:
		switch expr.Decl.Kind {
		case c.EnumeratorDecl:
			return e.literal(expr.Decl.Value, expr.Decl.Type, state), nil
		case c.FunctionDecl:
			return e.Evaluate(expr, state, edge)
		}
		return e.readLvalue(expr, state, edge)

	case *c.FieldRef, *c.ArraySubscript, *c.PointerExpr:
		return e.readLvalue(expr, state, edge)

	case *c.UnaryExpr:
		return e.unary(expr, state, edge)

	case *c.TypeIdExpr:
		var size int64
		if expr.Op == c.AlignofType {
			size = e.machine.AlignofBits(expr.Operand)
		} else {
			var err error
			if size, err = e.SizeofBits(expr.Operand, state, edge, nil); err != nil {
				return nil, err
			}
		}
		return single(sizeValue(size), state), nil

	case *c.BinaryExpr:
		if expr.Op.IsRelational() {
			return e.relational(expr, state, edge)
		} else if expr.Op == c.Minus && expr.Left.Type().IsAddress() && expr.Right.Type().IsAddress() {
			return e.pointerDifference(expr, state, edge)
		}
		return e.arithmetic(expr, state, edge)

	case *c.CastExpr:
		return e.cast(expr, state, edge)

	case *c.CallExpr:
		return e.mode.call(e, expr, state, edge)
	}
	return single(Unknown, state), nil
}

// literal returns the interned value of a constant of type typ.
func (e *Evaluator) literal(v int64, typ *c.Type, state *HeapState) []ValueResult {
	value, state := state.InternExplicit(e.machine.Truncate(v, typ))
	return single(value, state)
}

// sizeValue maps a size to Zero if it is empty and to Unknown otherwise.
func sizeValue(size int64) Value {
	if size == 0 {
		return Zero
	}
	return Unknown
}

func (e *Evaluator) unary(expr *c.UnaryExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	switch expr.Op {
	case c.UnaryAmper:
		assert(false, "address-of reached the scalar evaluator: %s", expr)

	case c.UnarySizeof:
		sizes, err := e.EvaluateSizeof(expr.Operand.Type(), state, edge, expr.Operand)
		if err != nil {
			return nil, err
		}
		return each(sizes, func(size Explicit, state *HeapState) ([]ValueResult, error) {
			if !size.Known {
				return single(Unknown, state), nil
			}
			return single(sizeValue(size.Value), state), nil
		})

	case c.UnaryAlignof:
		return single(sizeValue(e.machine.AlignofBits(expr.Operand.Type())), state), nil

	case c.UnaryNot:
		return e.relational(equalsZero(expr.Operand), state, edge)

	case c.UnaryPlus:
		return e.Evaluate(expr.Operand, state, edge)
	}

	// Only a negated zero is known precisely.
	values, err := e.Evaluate(expr.Operand, state, edge)
	if err != nil {
		return nil, err
	}
	for i := range values {
		if expr.Op != c.UnaryMinus || !IsZero(values[i].Value) {
			values[i].Value = Unknown
		} else {
			values[i].Value = Zero
		}
	}
	return values, nil
}

// relational evaluates a comparison as a value: false is Zero, anything
// else is Unknown since only zero is represented precisely.
func (e *Evaluator) relational(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	results, err := e.EvaluateAssumption(expr, state, edge)
	if err != nil {
		return nil, err
	}
	values := make([]ValueResult, len(results))
	for i, r := range results {
		values[i] = ValueResult{Value: Unknown, State: r.State}
		if _, ok := r.Value.(ZeroValue); ok {
			values[i].Value = Zero
		}
	}
	return values, nil
}

// arithmetic evaluates both operands in sequence and combines them.
func (e *Evaluator) arithmetic(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	lefts, err := e.Evaluate(expr.Left, state, edge)
	if err != nil {
		return nil, err
	}
	return each(lefts, func(l Value, state *HeapState) ([]ValueResult, error) {
		rights, err := e.Evaluate(expr.Right, state, edge)
		if err != nil {
			return nil, err
		}
		for i := range rights {
			rights[i].Value = combine(expr.Op, l, rights[i].Value, rights[i].State)
		}
		return rights, nil
	})
}

// combine applies a binary operator to two scalar values. The result is
// Zero when the operands force it and Unknown otherwise.
func combine(op c.BinaryOp, l, r Value, state *HeapState) Value {
	if IsUnknown(l) || IsUnknown(r) {
		return Unknown
	}

	lz, rz := IsZero(l), IsZero(r)
	switch op {
	case c.Plus, c.BinaryOr, c.BinaryXor, c.ShiftLeft, c.ShiftRight:
		if lz && rz {
			return Zero
		}
	case c.Minus, c.Modulo:
		if state.AreEqual(l, r) {
			return Zero
		}
	case c.Divide:
		if !rz && lz {
			return Zero
		}
	case c.Multiply, c.BinaryAnd:
		if lz || rz {
			return Zero
		}
	}
	return Unknown
}

// pointerDifference evaluates p - q. The difference in elements is exact
// when both pointers point into the same object.
func (e *Evaluator) pointerDifference(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	elem := expr.Left.Type().Pointee()
	if elem == nil {
		return nil, newError(UnsupportedCode, expr, "difference of %s", expr.Left.Type())
	}

	lefts, err := e.EvaluateAddressValue(expr.Left, state, edge)
	if err != nil {
		return nil, err
	}
	return each(lefts, func(l AddressValue, state *HeapState) ([]ValueResult, error) {
		rights, err := e.EvaluateAddressValue(expr.Right, state, edge)
		if err != nil {
			return nil, err
		}
		return each(rights, func(r AddressValue, state *HeapState) ([]ValueResult, error) {
			la, ra := l.Address, r.Address
			if la.IsUnknown() || ra.IsUnknown() || la.Object.ID != ra.Object.ID || !la.Offset.Known || !ra.Offset.Known {
				return single(Unknown, state), nil
			}

			size, err := e.SizeofBits(elem, state, edge, nil)
			if err != nil {
				return nil, err
			} else if size == 0 {
				return single(Unknown, state), nil
			}
			v, state := state.InternExplicit((la.Offset.Value - ra.Offset.Value) / size)
			return single(v, state), nil
		})
	})
}

// cast evaluates a conversion. A pointer converted to an integer keeps its
// identity. An integer with a known value is truncated to the target type.
func (e *Evaluator) cast(expr *c.CastExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	values, err := e.Evaluate(expr.Operand, state, edge)
	if err != nil {
		return nil, err
	}

	if expr.Operand.Type().IsAddress() {
		for i, r := range values {
			if _, ok := r.Value.(AddressValue); !ok {
				values[i].Value = Unknown
			}
		}
		return values, nil
	}

	if !expr.T.IsInteger() {
		return values, nil
	}
	for i, r := range values {
		if k, ok := r.State.GetExplicit(r.Value); ok {
			if t := e.machine.Truncate(k, expr.T); t != k {
				values[i].Value, values[i].State = r.State.InternExplicit(t)
			}
		}
	}
	return values, nil
}

// equalsZero returns the comparison operand == 0.
func equalsZero(operand c.Expr) *c.BinaryExpr {
	return &c.BinaryExpr{Op: c.Equals, Left: operand, Right: &c.IntLiteral{Value: 0, T: c.IntType}, T: c.IntType}
}

// notEqualsZero returns the comparison operand != 0.
func notEqualsZero(operand c.Expr) *c.BinaryExpr {
	return &c.BinaryExpr{Op: c.NotEquals, Left: operand, Right: &c.IntLiteral{Value: 0, T: c.IntType}, T: c.IntType}
}
