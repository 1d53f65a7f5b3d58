package smg

import (
	"github.com/benbjohnson/smg/c"
	"github.com/tliron/commonlog"
)

var evalLog = commonlog.GetLogger("smg.evaluator")

// Evaluator translates C expressions into values and addresses of a symbolic
// memory graph. It is the single entry point used by the transfer relation.
//
// Two variants exist. The read-only evaluator never flags faults and never
// creates objects other than the storage of variables used for the first
// time. The mutating evaluator records invalid accesses on the returned
// states, creates function objects on demand and models builtin calls.
//
// An Evaluator holds no per-call state and may be shared.
type Evaluator struct {
	machine *c.Machine
	options Options
	mode    strategy

	fns      map[string]FunctionHandler // builtin models by name
	prefixes []prefixHandler            // builtin models by name prefix
}

// NewReadOnlyEvaluator returns a read-only evaluator.
func NewReadOnlyEvaluator(machine *c.Machine, options Options) *Evaluator {
	return newEvaluator(machine, options, readOnly{})
}

// NewEvaluator returns a mutating evaluator with the default builtins
// registered.
func NewEvaluator(machine *c.Machine, options Options) *Evaluator {
	return newEvaluator(machine, options, mutating{})
}

func newEvaluator(machine *c.Machine, options Options, mode strategy) *Evaluator {
	e := &Evaluator{
		machine: machine,
		options: options,
		mode:    mode,
		fns:     make(map[string]FunctionHandler),
	}

	// Default registrations.
	e.Register("malloc", execMalloc)
	e.Register("calloc", execCalloc)
	e.Register("alloca", execAlloca)
	e.Register("__builtin_alloca", execAlloca)
	e.Register("free", execFree)
	e.Register("printf", execNoop)
	e.Register("puts", execNoop)
	e.Register("putchar", execNoop)
	e.Register("__VERIFIER_nondet_*", execNondet)
	e.Register("nondet_*", execNondet)

	return e
}

// Machine returns the machine model used for sizes and layouts.
func (e *Evaluator) Machine() *c.Machine { return e.machine }

// Options returns the configuration of the evaluator.
func (e *Evaluator) Options() Options { return e.options }

// IsMutating returns true for the mutating variant.
func (e *Evaluator) IsMutating() bool {
	_, ok := e.mode.(mutating)
	return ok
}

// NewState returns an empty graph configured for this evaluator.
func (e *Evaluator) NewState() *HeapState {
	return NewHeapState(e.machine).WithStackLimit(e.options.StackLimitBits)
}

// Evaluate returns the possible values of expr. Address-typed expressions
// evaluate to AddressValues.
func (e *Evaluator) Evaluate(expr c.Expr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	if !expr.Type().IsAddress() {
		return e.EvaluateScalar(expr, state, edge)
	}

	results, err := e.EvaluateAddressValue(expr, state, edge)
	if err != nil {
		return nil, err
	}
	values := make([]ValueResult, len(results))
	for i, r := range results {
		values[i] = ValueResult{Value: r.Value, State: r.State}
	}
	return values, nil
}

// strategy holds the behavior that differs between the read-only and the
// mutating evaluator.
type strategy interface {
	// functionAddress returns the address of a function designator.
	functionAddress(state *HeapState, decl *c.Decl) (Address, *HeapState)

	// invalidRead is called for a read that is out of bounds or whose
	// target is unresolved. obj may be nil.
	invalidRead(state *HeapState, reason string, obj *Object) *HeapState

	// unknownDereference is called when a pointer with an unknown target
	// is dereferenced.
	unknownDereference(state *HeapState, expr c.Expr) *HeapState

	// call evaluates a function call.
	call(e *Evaluator, expr *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error)
}

type readOnly struct{}

func (readOnly) functionAddress(state *HeapState, decl *c.Decl) (Address, *HeapState) {
	if obj := state.ObjectForFunction(decl.Name); obj != nil {
		return NewAddress(obj, 0), state
	}
	return UnknownAddress, state
}

func (readOnly) invalidRead(state *HeapState, reason string, obj *Object) *HeapState {
	return state
}

func (readOnly) unknownDereference(state *HeapState, expr c.Expr) *HeapState {
	return state
}

func (readOnly) call(e *Evaluator, expr *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	return single(Unknown, state), nil
}

type mutating struct{}

func (mutating) functionAddress(state *HeapState, decl *c.Decl) (Address, *HeapState) {
	if obj := state.ObjectForFunction(decl.Name); obj != nil {
		return NewAddress(obj, 0), state
	}
	obj, state := state.AddFunction(decl.Name)
	return NewAddress(obj, 0), state
}

func (mutating) invalidRead(state *HeapState, reason string, obj *Object) *HeapState {
	evalLog.Infof("invalid read: %s", reason)
	return state.SetInvalidRead(reason, obj)
}

func (mutating) unknownDereference(state *HeapState, expr c.Expr) *HeapState {
	evalLog.Debugf("dereference of pointer with unknown target: %s", expr)
	return state.SetUnknownDereference()
}

func (mutating) call(e *Evaluator, expr *c.CallExpr, state *HeapState, edge *c.Edge) ([]ValueResult, error) {
	return e.evaluateCall(expr, state, edge)
}

// each applies fn to every result in order and concatenates the outputs.
// The state of result i is only ever passed to the continuation of result i.
func each[T, U any](results []Result[T], fn func(T, *HeapState) ([]Result[U], error)) ([]Result[U], error) {
	var out []Result[U]
	for _, r := range results {
		next, err := fn(r.Value, r.State)
		if err != nil {
			return nil, err
		}
		out = append(out, next...)
	}
	return out, nil
}
