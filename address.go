package smg

import (
	"github.com/benbjohnson/smg/c"
)

// EvaluateAddress returns the storage designated by expr: variables, fields,
// array elements and dereferenced pointers. Storage for a variable is created
// the first time it is used. Expressions that designate no storage evaluate
// to UnknownAddress.
func (e *Evaluator) EvaluateAddress(expr c.Expr, state *HeapState, edge *c.Edge) ([]AddressResult, error) {
	return e.evaluateAddress(expr, state, edge, false)
}

// EvaluateLValue is like EvaluateAddress but fails with a NotAnLvalue error
// for unary operators and function calls, which can never be assigned to.
func (e *Evaluator) EvaluateLValue(expr c.Expr, state *HeapState, edge *c.Edge) ([]AddressResult, error) {
	return e.evaluateAddress(expr, state, edge, true)
}

func (e *Evaluator) evaluateAddress(expr c.Expr, state *HeapState, edge *c.Edge, strict bool) ([]AddressResult, error) {
	switch expr := expr.(type) {
	case *c.IdExpr:
		switch expr.Decl.Kind {
		case c.VariableDecl:
			return e.variableAddress(expr.Decl, state, edge)
		case c.FunctionDecl:
			addr, state := e.mode.functionAddress(state, expr.Decl)
			return single(addr, state), nil
		}
	case *c.FieldRef:
		return e.fieldAddress(expr, state, edge, strict)
	case *c.ArraySubscript:
		return e.elementAddress(expr, state, edge, strict)
	case *c.PointerExpr:
		return e.dereference(expr, expr.Operand, state, edge, strict)
	case *c.UnaryExpr, *c.CallExpr:
		if strict {
			return nil, newError(NotAnLvalue, expr, "expression does not designate an object")
		}
	}
	return single(UnknownAddress, state), nil
}

// variableAddress returns the storage of a variable, creating it on first use.
func (e *Evaluator) variableAddress(decl *c.Decl, state *HeapState, edge *c.Edge) ([]AddressResult, error) {
	if obj := state.ObjectForVariable(decl.Name); obj != nil {
		return single(NewAddress(obj, 0), state), nil
	}

	// A variable-length array may have a different size on each branch of
	// its length. Storage cannot be created where the length is unresolved.
	sizes, err := e.EvaluateSizeof(decl.Type, state, edge, nil)
	if err != nil {
		return nil, err
	}
	return each(sizes, func(size Explicit, state *HeapState) ([]AddressResult, error) {
		if !size.Known {
			return single(UnknownAddress, state), nil
		}

		if decl.Global {
			obj, state := state.AddGlobalVariable(size.Value, decl.Name)
			return single(NewAddress(obj, 0), state), nil
		}

		obj, other, ok := state.AddLocalVariable(size.Value, decl.Name)
		if !ok {
			return single(UnknownAddress, state), nil
		}
		return single(NewAddress(obj, 0), other), nil
	})
}

// dereference returns the storage operand points to. An array operand
// designates its own storage.
func (e *Evaluator) dereference(expr, operand c.Expr, state *HeapState, edge *c.Edge, strict bool) ([]AddressResult, error) {
	if operand.Type().IsArray() {
		return e.evaluateAddress(operand, state, edge, strict)
	}

	ptrs, err := e.EvaluateAddressValue(operand, state, edge)
	if err != nil {
		return nil, err
	}
	return each(ptrs, func(p AddressValue, state *HeapState) ([]AddressResult, error) {
		if p.Address.Object == nil {
			return single(UnknownAddress, e.mode.unknownDereference(state, expr)), nil
		} else if !p.Address.Object.IsAbstract() {
			return single(p.Address, state), nil
		}

		// Only a concrete node can be dereferenced.
		return each(state.PointerFromValue(p), func(q AddressValue, state *HeapState) ([]AddressResult, error) {
			return single(q.Address, state), nil
		})
	})
}

func (e *Evaluator) fieldAddress(expr *c.FieldRef, state *HeapState, edge *c.Edge, strict bool) ([]AddressResult, error) {
	var owner *c.Type
	var bases []AddressResult
	var err error
	if expr.Deref {
		owner = expr.Owner.Type().Pointee()
		bases, err = e.dereference(expr, expr.Owner, state, edge, strict)
	} else {
		owner = expr.Owner.Type()
		bases, err = e.evaluateAddress(expr.Owner, state, edge, strict)
	}
	if err != nil {
		return nil, err
	}

	offset, _, ok := e.machine.FieldOffset(owner, expr.Name)
	if !ok {
		return nil, newError(UnrecognizedType, expr, "no field %s in %s", expr.Name, owner)
	}

	for i := range bases {
		bases[i].Value = bases[i].Value.Add(KnownExplicit(offset))
	}
	return bases, nil
}

// elementAddress returns the address of an array element. The subscript may
// fork the state if it has several explicit values.
func (e *Evaluator) elementAddress(expr *c.ArraySubscript, state *HeapState, edge *c.Edge, strict bool) ([]AddressResult, error) {
	var bases []AddressResult
	var err error
	if expr.Array.Type().IsArray() {
		bases, err = e.evaluateAddress(expr.Array, state, edge, strict)
	} else {
		bases, err = e.dereference(expr, expr.Array, state, edge, strict)
	}
	if err != nil {
		return nil, err
	}

	return each(bases, func(base Address, state *HeapState) ([]AddressResult, error) {
		sizes, err := e.EvaluateSizeof(expr.T, state, edge, nil)
		if err != nil {
			return nil, err
		}
		return each(sizes, func(size Explicit, state *HeapState) ([]AddressResult, error) {
			indexes, err := e.explicitValues(expr.Subscript, state, edge)
			if err != nil {
				return nil, err
			}
			return each(indexes, func(index Explicit, state *HeapState) ([]AddressResult, error) {
				return single(base.Add(index.Mul(size)), state), nil
			})
		})
	})
}
