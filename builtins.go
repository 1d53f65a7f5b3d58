package smg

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/smg/c"
)

// FunctionHandler models a call to a function the analyzed program does not
// define. Handlers are only invoked by the mutating evaluator.
type FunctionHandler func(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error)

// prefixHandler matches every function whose name starts with prefix.
type prefixHandler struct {
	prefix string
	h      FunctionHandler
}

// Register registers a function handler for a given function name. A name
// ending in "*" matches every function with that prefix. Exact names take
// precedence over prefixes.
func (e *Evaluator) Register(name string, h FunctionHandler) {
	if strings.HasSuffix(name, "*") {
		e.prefixes = append(e.prefixes, prefixHandler{prefix: strings.TrimSuffix(name, "*"), h: h})
		return
	}
	e.fns[name] = h
}

// handler returns the handler registered for name.
func (e *Evaluator) handler(name string) FunctionHandler {
	if h := e.fns[name]; h != nil {
		return h
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.h
		}
	}
	return nil
}

// evaluateCall evaluates a function call in the mutating evaluator.
//
// Calls through function pointers and calls to functions defined in the
// analyzed program return Unknown; their effects are the concern of the
// caller. Builtins are modeled by their handlers. Any other function is
// external and treated according to the configured policy.
func (e *Evaluator) evaluateCall(call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	name := call.FuncName()
	if name == "" {
		evalLog.Debugf("call through function pointer: %s", call)
		return e.evaluateArgs(call, state, edge)
	}

	if h := e.handler(name); h != nil {
		return h(e, call, state, edge)
	}

	id := call.Func.(*c.IdExpr)
	if id.Decl.Defined || e.options.IsSafeFunction(name) {
		return e.evaluateArgs(call, state, edge)
	}

	switch e.options.ExternalFunctionPolicy {
	case PolicyStrict:
		return nil, newError(UnknownExternalFunction, call, "call to external function %s", name)

	case PolicyAssumeExternalAllocated:
		results, err := e.evaluateArgs(call, state, edge)
		if err != nil || !call.T.IsPointer() {
			return results, err
		}
		return each(results, func(_ Value, state *HeapState) ([]ValueResult, error) {
			evalLog.Infof("assuming %s returns external memory", name)
			obj, state := state.AddExternalObject(e.options.ExternalAllocationSize, name)
			return addressValues(state.PointerFromAddress(NewAddress(obj, 0))), nil
		})

	default:
		evalLog.Debugf("assuming external function %s is safe", name)
		return e.evaluateArgs(call, state, edge)
	}
}

// evaluateArgs evaluates the arguments of a call in order for their side
// effects. The call itself returns Unknown.
func (e *Evaluator) evaluateArgs(call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	results := single(Unknown, state)
	for _, arg := range call.Args {
		var err error
		if results, err = each(results, func(_ Value, state *HeapState) ([]ValueResult, error) {
			values, err := e.Evaluate(arg, state, edge)
			if err != nil {
				return nil, err
			}
			for i := range values {
				values[i].Value = Unknown
			}
			return values, nil
		}); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// allocationSizes returns the size in bytes of an allocation request.
func (e *Evaluator) allocationSizes(expr c.Expr, state *HeapState, edge *c.Edge) ([]ExplicitResult, error) {
	if e.options.GuessSizeOfUnknownMemorySize {
		return e.forcedExplicitValues(expr, state, edge)
	}
	return e.explicitValues(expr, state, edge)
}

// allocate returns a pointer to a new object of the given kind. If
// allocation failure is enabled, a second result returns null on the state
// before the allocation.
func (e *Evaluator) allocate(call *c.CallExpr, kind ObjectKind, zeroed bool, sizeBits int64, state *HeapState, edge *c.Edge) []ValueResult {
	label := call.FuncName()
	if edge != nil {
		label = fmt.Sprintf("%s@%d", label, edge.Line)
	}

	var obj *Object
	var other *HeapState
	switch {
	case kind == StackObject:
		obj, other = state.AddStackObject(sizeBits, label)
	case zeroed:
		obj, other = state.AddZeroedHeapObject(sizeBits, label)
	default:
		obj, other = state.AddHeapObject(sizeBits, label)
	}

	results := addressValues(other.PointerFromAddress(NewAddress(obj, 0)))
	if kind != StackObject && e.options.EnableMallocFailure {
		evalLog.Debugf("%s may fail", call)
		results = append(results, ValueResult{Value: Zero, State: state})
	}
	return results
}

// addressValues converts pointer results into value results.
func addressValues(ptrs []AddressValueResult) []ValueResult {
	values := make([]ValueResult, len(ptrs))
	for i, p := range ptrs {
		values[i] = ValueResult{Value: p.Value, State: p.State}
	}
	return values
}

func expectArgs(call *c.CallExpr, n int) error {
	if len(call.Args) != n {
		return newError(UnsupportedCode, call, "%s expects %d arguments, got %d", call.FuncName(), n, len(call.Args))
	}
	return nil
}

func execMalloc(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if err := expectArgs(call, 1); err != nil {
		return nil, err
	}
	sizes, err := e.allocationSizes(call.Args[0], state, edge)
	if err != nil {
		return nil, err
	}
	return each(sizes, func(size Explicit, state *HeapState) ([]ValueResult, error) {
		if !size.Known {
			evalLog.Infof("unknown allocation size: %s", call)
			return single(Unknown, state), nil
		}
		return e.allocate(call, HeapObject, false, size.Value*8, state, edge), nil
	})
}

func execCalloc(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if err := expectArgs(call, 2); err != nil {
		return nil, err
	}
	counts, err := e.allocationSizes(call.Args[0], state, edge)
	if err != nil {
		return nil, err
	}
	return each(counts, func(n Explicit, state *HeapState) ([]ValueResult, error) {
		sizes, err := e.allocationSizes(call.Args[1], state, edge)
		if err != nil {
			return nil, err
		}
		return each(sizes, func(size Explicit, state *HeapState) ([]ValueResult, error) {
			total := n.Mul(size)
			if !total.Known {
				evalLog.Infof("unknown allocation size: %s", call)
				return single(Unknown, state), nil
			}
			return e.allocate(call, HeapObject, true, total.Value*8, state, edge), nil
		})
	})
}

func execAlloca(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if err := expectArgs(call, 1); err != nil {
		return nil, err
	}
	sizes, err := e.allocationSizes(call.Args[0], state, edge)
	if err != nil {
		return nil, err
	}
	return each(sizes, func(size Explicit, state *HeapState) ([]ValueResult, error) {
		if !size.Known {
			evalLog.Infof("unknown allocation size: %s", call)
			return single(Unknown, state), nil
		}
		return e.allocate(call, StackObject, false, size.Value*8, state, edge), nil
	})
}

func execFree(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if err := expectArgs(call, 1); err != nil {
		return nil, err
	}
	ptrs, err := e.EvaluateAddressValue(call.Args[0], state, edge)
	if err != nil {
		return nil, err
	}
	return each(ptrs, func(p AddressValue, state *HeapState) ([]ValueResult, error) {
		addr := p.Address
		switch {
		case IsZero(p) || (addr.Object == Null && addr.Offset.Known && addr.Offset.Value == 0):
			return single(Unknown, state), nil
		case addr.Object == nil:
			return single(Unknown, e.mode.unknownDereference(state, call.Args[0])), nil
		case !state.IsObjectValid(addr.Object):
			return single(Unknown, state.SetInvalidFree(fmt.Sprintf("double free of %s", addr.Object.Label), addr.Object)), nil
		case addr.Object.Kind != HeapObject:
			return single(Unknown, state.SetInvalidFree(fmt.Sprintf("free of non-heap object %s", addr.Object.Label), addr.Object)), nil
		case !addr.Offset.Known || addr.Offset.Value != 0:
			return single(Unknown, state.SetInvalidFree(fmt.Sprintf("free of pointer into the middle of %s", addr.Object.Label), addr.Object)), nil
		}
		evalLog.Debugf("free %s", addr.Object)
		return single(Unknown, state.Free(addr.Object)), nil
	})
}

func execNoop(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	return e.evaluateArgs(call, state, edge)
}

func execNondet(e *Evaluator, call *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	results, err := e.evaluateArgs(call, state, edge)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		var v SymbolicValue
		v, results[i].State = r.State.NewSymbolic()
		results[i].Value = v
	}
	return results, nil
}
