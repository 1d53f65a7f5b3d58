package smg

import (
	"fmt"

	"github.com/benbjohnson/smg/c"
)

// ReadBits performs a bounds-checked read of sizeBits at addr.
//
// Reads from an unresolved address, from an invalid object, or outside the
// object evaluate to Unknown. The mutating evaluator also flags the returned
// state with an invalid read and attaches the object to its fault set.
// Evaluation continues on the flagged state.
func (e *Evaluator) ReadBits(addr Address, sizeBits int64, state *HeapState) ValueResult {
	if addr.IsUnknown() {
		return ValueResult{Value: Unknown, State: e.mode.invalidRead(state, "read from unresolved address", addr.Object)}
	}

	obj, offset := addr.Object, addr.Offset.Value
	switch {
	case obj.Kind == NullObject:
		return ValueResult{Value: Unknown, State: e.mode.invalidRead(state, "null pointer dereference", obj)}
	case !state.IsObjectValid(obj):
		return ValueResult{Value: Unknown, State: e.mode.invalidRead(state, fmt.Sprintf("read from invalid object %s", obj.Label), obj)}
	case offset < 0 || offset+sizeBits > state.ObjectSizeBits(obj):
		return ValueResult{Value: Unknown, State: e.mode.invalidRead(state, outOfBoundsReason("read", obj, offset, sizeBits), obj)}
	}

	v, state := state.ReadBits(obj, offset, sizeBits)
	return ValueResult{Value: v, State: state}
}

// WriteBits stores v at addr. Writes through an unresolved address are
// flagged as invalid writes by the mutating evaluator and ignored by the
// read-only one.
func (e *Evaluator) WriteBits(addr Address, sizeBits int64, v Value, state *HeapState) *HeapState {
	if addr.IsUnknown() {
		if e.IsMutating() {
			evalLog.Infof("write through unresolved address")
			return state.SetInvalidWrite("write to unresolved address", addr.Object)
		}
		return state
	} else if addr.Object.Kind == NullObject {
		if e.IsMutating() {
			evalLog.Infof("write through null pointer")
			return state.SetInvalidWrite("null pointer dereference", addr.Object)
		}
		return state
	}
	return state.WriteValue(addr.Object, addr.Offset.Value, sizeBits, v)
}

// read performs a bounds-checked read of a value of type typ at addr.
func (e *Evaluator) read(addr Address, typ *c.Type, state *HeapState, edge *c.Edge, expr c.Expr) (ValueResult, error) {
	size, err := e.SizeofBits(typ, state, edge, expr)
	if err != nil {
		return ValueResult{}, err
	}
	return e.ReadBits(addr, size, state), nil
}

// readLvalue reads the value stored in the storage designated by expr.
func (e *Evaluator) readLvalue(expr c.Expr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	addrs, err := e.EvaluateAddress(expr, state, edge)
	if err != nil {
		return nil, err
	}
	return each(addrs, func(addr Address, state *HeapState) ([]ValueResult, error) {
		r, err := e.read(addr, expr.Type(), state, edge, expr)
		if err != nil {
			return nil, err
		}
		return []ValueResult{r}, nil
	})
}
