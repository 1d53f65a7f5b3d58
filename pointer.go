package smg

import (
	"github.com/benbjohnson/smg/c"
)

// EvaluateAddressValue returns the possible values of a pointer-typed
// expression together with the addresses they designate. Arrays and
// function designators decay to a pointer to their first byte.
func (e *Evaluator) EvaluateAddressValue(expr c.Expr, state *HeapState, edge *c.Edge) ([]AddressValueResult, error) {
	switch expr := expr.(type) {
	case *c.IdExpr:
		switch expr.Decl.Kind {
		case c.FunctionDecl:
			return e.functionPointer(expr.Decl, state), nil
		case c.VariableDecl:
			if expr.Decl.Type.IsArray() {
				return e.pointersTo(e.variableAddress(expr.Decl, state, edge))
			}
			return e.readPointer(expr, state, edge)
		}

	case *c.UnaryExpr:
		switch expr.Op {
		case c.UnaryAmper:
			return e.addressOf(expr.Operand, state, edge)
		case c.UnaryPlus:
			return e.EvaluateAddressValue(expr.Operand, state, edge)
		}

	case *c.BinaryExpr:
		return e.pointerArithmetic(expr, state, edge)

	case *c.CastExpr:
		if expr.Operand.Type().IsAddress() {
			return e.EvaluateAddressValue(expr.Operand, state, edge)
		}
		return e.promote(e.Evaluate(expr.Operand, state, edge))

	case *c.PointerExpr:
		// A dereferenced function pointer is the function pointer itself.
		if expr.T.IsFunction() {
			return e.EvaluateAddressValue(expr.Operand, state, edge)
		}
		return e.lvaluePointer(expr, state, edge)

	case *c.FieldRef, *c.ArraySubscript:
		return e.lvaluePointer(expr, state, edge)

	case *c.StringLiteral:
		return single(UnknownAddressValue, state), nil
	}

	// Anything else is evaluated as a scalar and then looked up as a pointer.
	return e.promote(e.scalar(expr, state, edge))
}

// lvaluePointer returns the pointer stored in an lvalue, or the decayed
// address of an lvalue of array type.
func (e *Evaluator) lvaluePointer(expr c.Expr, state *HeapState, edge *c.Edge) ([]AddressValueResult, error) {
	if expr.Type().IsArray() {
		return e.pointersTo(e.EvaluateAddress(expr, state, edge))
	}
	return e.readPointer(expr, state, edge)
}

// readPointer reads the pointer value stored in an lvalue.
func (e *Evaluator) readPointer(expr c.Expr, state *HeapState, edge *c.Edge) ([]AddressValueResult, error) {
	return e.promote(e.readLvalue(expr, state, edge))
}

// addressOf evaluates &operand.
func (e *Evaluator) addressOf(operand c.Expr, state *HeapState, edge *c.Edge) ([]AddressValueResult, error) {
	switch operand := operand.(type) {
	case *c.IdExpr:
		switch operand.Decl.Kind {
		case c.FunctionDecl:
			return e.functionPointer(operand.Decl, state), nil
		case c.VariableDecl:
			return e.pointersTo(e.variableAddress(operand.Decl, state, edge))
		}
	case *c.PointerExpr:
		return e.EvaluateAddressValue(operand.Operand, state, edge)
	case *c.FieldRef, *c.ArraySubscript:
		return e.pointersTo(e.EvaluateAddress(operand, state, edge))
	}
	return e.pointersTo(e.EvaluateLValue(operand, state, edge))
}

func (e *Evaluator) functionPointer(decl *c.Decl, state *HeapState) []AddressValueResult {
	addr, state := e.mode.functionAddress(state, decl)
	return state.PointerFromAddress(addr)
}

// pointersTo converts each address into the pointer designating it.
func (e *Evaluator) pointersTo(addrs []AddressResult, err error) ([]AddressValueResult, error) {
	if err != nil {
		return nil, err
	}
	return each(addrs, func(addr Address, state *HeapState) ([]AddressValueResult, error) {
		return state.PointerFromAddress(addr), nil
	})
}

// promote looks up each value as a pointer. Abstract targets are left as
// they are until the pointer is dereferenced.
func (e *Evaluator) promote(values []ValueResult, err error) ([]AddressValueResult, error) {
	if err != nil {
		return nil, err
	}
	out := make([]AddressValueResult, len(values))
	for i, r := range values {
		out[i] = AddressValueResult{Value: r.State.pointerValue(r.Value), State: r.State}
	}
	return out, nil
}

// pointerArithmetic evaluates pointer plus or minus an integer. The integer
// is scaled by the size of the pointee.
func (e *Evaluator) pointerArithmetic(expr *c.BinaryExpr, state *HeapState, edge *c.Edge) ([]AddressValueResult, error) {
	lt, rt := expr.Left.Type(), expr.Right.Type()

	var ptr, offset c.Expr
	switch {
	case lt.IsAddress() && !rt.IsAddress():
		ptr, offset = expr.Left, expr.Right
	case rt.IsAddress() && !lt.IsAddress():
		if expr.Op == c.Minus {
			return nil, newError(UnsupportedCode, expr, "cannot subtract a pointer from an integer")
		}
		ptr, offset = expr.Right, expr.Left
	case !lt.IsAddress() && !rt.IsAddress():
		return e.promote(e.scalar(expr, state, edge))
	default:
		return nil, newError(UnsupportedCode, expr, "invalid operands to pointer arithmetic")
	}

	if expr.Op != c.Plus && expr.Op != c.Minus {
		return nil, newError(UnsupportedCode, expr, "operator %s is not pointer arithmetic", expr.Op)
	}

	elem := ptr.Type().Pointee()
	if elem == nil {
		return nil, newError(UnsupportedCode, expr, "arithmetic on %s", ptr.Type())
	}

	ptrs, err := e.EvaluateAddressValue(ptr, state, edge)
	if err != nil {
		return nil, err
	}
	return each(ptrs, func(p AddressValue, state *HeapState) ([]AddressValueResult, error) {
		size, err := e.SizeofBits(elem, state, edge, nil)
		if err != nil {
			return nil, err
		}

		deltas, err := e.explicitValues(offset, state, edge)
		if err != nil {
			return nil, err
		}
		return each(deltas, func(k Explicit, state *HeapState) ([]AddressValueResult, error) {
			if p.Address.Object == nil {
				return single(UnknownAddressValue, state), nil
			}

			delta := k.Mul(KnownExplicit(size))
			if expr.Op == c.Minus {
				delta = KnownExplicit(0).Sub(delta)
			}
			return state.PointerFromAddress(p.Address.Add(delta)), nil
		})
	})
}
