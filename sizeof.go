package smg

import (
	"github.com/benbjohnson/smg/c"
)

// EvaluateSizeof returns the size of typ in bits, one result per branch.
//
// Fixed-size types are laid out by the machine model and never fork. The
// length of a variable-length array is evaluated when edge declares it;
// elsewhere it is derived from the storage of expr, the expression the type
// was taken from. Either may fork the state. A branch whose length cannot
// be resolved has an unknown size. Returns an UnrecognizedType error if no
// branch resolves.
func (e *Evaluator) EvaluateSizeof(typ *c.Type, state *HeapState, edge *c.Edge, expr c.Expr) ([]ExplicitResult, error) {
	return e.sizeofBits(typ, state, edge, expr, nil)
}

// SizeofBits returns the size of typ in bits. The size of a variable-length
// array must resolve to the same value on every branch, otherwise an
// UnrecognizedType error is returned. Callers that need the branches use
// EvaluateSizeof.
func (e *Evaluator) SizeofBits(typ *c.Type, state *HeapState, edge *c.Edge, expr c.Expr) (int64, error) {
	results, err := e.sizeofBits(typ, state, edge, expr, nil)
	if err != nil {
		return 0, err
	}
	size, ok := sameSize(results)
	if !ok {
		return 0, newError(UnrecognizedType, expr, "size of %s differs between branches", typ)
	}
	return size, nil
}

// SizeofBitsOrDefault is like SizeofBits but uses def as the size of a
// variable-length array whose length cannot be resolved, or whose size
// differs between branches. It is used when refining earlier results, where
// a loss of precision is acceptable. Types without a size still fail.
func (e *Evaluator) SizeofBitsOrDefault(typ *c.Type, state *HeapState, edge *c.Edge, expr c.Expr, def int64) (int64, error) {
	results, err := e.sizeofBits(typ, state, edge, expr, &def)
	if err != nil {
		return 0, err
	}
	if size, ok := sameSize(results); ok {
		return size, nil
	}
	return def, nil
}

// sameSize returns the size shared by every branch.
func sameSize(results []ExplicitResult) (int64, bool) {
	for _, r := range results {
		if !r.Value.Known || r.Value.Value != results[0].Value.Value {
			return 0, false
		}
	}
	return results[0].Value.Value, true
}

// sizeofBits computes per-branch sizes. If def is set, it is the size of a
// variable-length array whose length is unresolved.
func (e *Evaluator) sizeofBits(typ *c.Type, state *HeapState, edge *c.Edge, expr c.Expr, def *int64) ([]ExplicitResult, error) {
	if !typ.IsVariableLength() {
		if size, ok := e.machine.SizeofBits(typ); ok {
			return single(KnownExplicit(size), state), nil
		}
		return nil, newError(UnrecognizedType, expr, "cannot compute size of %s", typ)
	}

	unresolved := func(state *HeapState) []ExplicitResult {
		if def != nil {
			return single(KnownExplicit(*def), state)
		}
		return single(UnknownExplicit, state)
	}

	var results []ExplicitResult
	if edge.Declares(typ) {
		// At the declaration the length expression is evaluated.
		lens, err := e.explicitValues(typ.Len, state, edge)
		if err != nil {
			return nil, err
		}
		results, err = each(lens, func(n Explicit, state *HeapState) ([]ExplicitResult, error) {
			if !n.Known {
				return unresolved(state), nil
			}
			elems, err := e.sizeofBits(typ.Elem, state, edge, nil, def)
			if err != nil {
				return nil, err
			}
			return each(elems, func(elem Explicit, state *HeapState) ([]ExplicitResult, error) {
				return single(n.Mul(elem), state), nil
			})
		})
		if err != nil {
			return nil, err
		}
	} else {
		// Elsewhere the size is whatever remains of the storage behind expr.
		if expr == nil {
			return nil, newError(UnrecognizedType, nil, "no expression to size variable-length array %s", typ)
		}
		addrs, err := e.EvaluateLValue(expr, state, edge)
		if err != nil {
			return nil, err
		}
		results, _ = each(addrs, func(addr Address, state *HeapState) ([]ExplicitResult, error) {
			if addr.IsUnknown() {
				return unresolved(state), nil
			}
			return single(KnownExplicit(state.ObjectSizeBits(addr.Object)-addr.Offset.Value), state), nil
		})
	}

	for _, r := range results {
		if r.Value.Known {
			return results, nil
		}
	}
	return nil, newError(UnrecognizedType, typ.Len, "unknown length of variable-length array %s", typ)
}
