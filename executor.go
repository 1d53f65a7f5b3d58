package smg

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

var execLog = commonlog.GetLogger("smg.executor")

var (
	ErrNoStateAvailable = errors.New("smg: no state available")
)

// Stmt represents a statement of a straight-line program. Branching is
// expressed with AssumeStmt: a path on which the assumption cannot hold is
// dropped.
type Stmt interface {
	Edge() *c.Edge
	String() string
	stmt()
}

func (*DeclStmt) stmt()   {}
func (*AssignStmt) stmt() {}
func (*AssumeStmt) stmt() {}
func (*EvalStmt) stmt()   {}

// Pos is the source position of a statement.
type Pos struct {
	Line int
	Text string
}

// DeclStmt declares a variable with an optional initializer.
type DeclStmt struct {
	Decl *c.Decl
	Init c.Expr
	Pos
}

func (s *DeclStmt) Edge() *c.Edge { return &c.Edge{Decl: s.Decl, Line: s.Line, Text: s.Text} }
func (s *DeclStmt) String() string {
	if s.Init == nil {
		return s.Decl.String()
	}
	return fmt.Sprintf("%s = %s", s.Decl, s.Init)
}

// AssignStmt stores the value of RHS into the storage designated by LHS.
type AssignStmt struct {
	LHS c.Expr
	RHS c.Expr
	Pos
}

func (s *AssignStmt) Edge() *c.Edge  { return &c.Edge{Line: s.Line, Text: s.Text} }
func (s *AssignStmt) String() string { return fmt.Sprintf("%s = %s", s.LHS, s.RHS) }

// AssumeStmt restricts the path to executions in which Cond evaluates to Truth.
type AssumeStmt struct {
	Cond  c.Expr
	Truth bool
	Pos
}

func (s *AssumeStmt) Edge() *c.Edge { return &c.Edge{Line: s.Line, Text: s.Text} }
func (s *AssumeStmt) String() string {
	if s.Truth {
		return fmt.Sprintf("assume(%s)", s.Cond)
	}
	return fmt.Sprintf("assume(!(%s))", s.Cond)
}

// EvalStmt evaluates an expression and records its value on the path.
type EvalStmt struct {
	Expr c.Expr
	Pos
}

func (s *EvalStmt) Edge() *c.Edge  { return &c.Edge{Line: s.Line, Text: s.Text} }
func (s *EvalStmt) String() string { return s.Expr.String() }

// Evaluation is the value an EvalStmt produced on one path.
type Evaluation struct {
	Stmt     *EvalStmt
	Value    Value
	Explicit Explicit
}

// String returns a string representation of the evaluation.
func (e Evaluation) String() string {
	if e.Explicit.Known {
		return fmt.Sprintf("%s = %s (%d)", e.Stmt, e.Value, e.Explicit.Value)
	}
	return fmt.Sprintf("%s = %s", e.Stmt, e.Value)
}

// ExecutionStatus represents the current status of an execution state.
type ExecutionStatus string

const (
	ExecutionStatusRunning    = ExecutionStatus("running")    // has future statements
	ExecutionStatusFinished   = ExecutionStatus("finished")   // clean completion
	ExecutionStatusFaulted    = ExecutionStatus("faulted")    // invalid memory access
	ExecutionStatusInfeasible = ExecutionStatus("infeasible") // an assumption cannot hold
	ExecutionStatusFailed     = ExecutionStatus("failed")     // unsupported code
)

// ExecutionState represents a path under exploration.
type ExecutionState struct {
	id int

	// Execution hierarchy.
	parent   *ExecutionState
	children []*ExecutionState

	heap *HeapState
	pc   int
	line int // source line of the last statement executed

	status ExecutionStatus
	reason string

	evaluations []Evaluation
}

// ID returns an autoincrementing ID assigned by the executor.
func (s *ExecutionState) ID() int { return s.id }

// Parent returns the state this state was forked from.
func (s *ExecutionState) Parent() *ExecutionState { return s.parent }

// Children returns the states forked from this state.
func (s *ExecutionState) Children() []*ExecutionState { return s.children }

// Heap returns the memory graph of the path.
func (s *ExecutionState) Heap() *HeapState { return s.heap }

// Status returns the current status of the state.
// See Reason() for additional information if status is in an error state.
func (s *ExecutionState) Status() ExecutionStatus { return s.status }

// Reason returns additional information about the status of the state.
func (s *ExecutionState) Reason() string { return s.reason }

// Line returns the source line of the statement most recently executed.
// For a terminated state this is the statement the path stopped on.
func (s *ExecutionState) Line() int { return s.line }

// Terminated returns true if the state completed execution of a path.
func (s *ExecutionState) Terminated() bool { return s.status != ExecutionStatusRunning }

// Evaluations returns the values recorded by EvalStmts on the path, including
// those recorded before the state was forked.
func (s *ExecutionState) Evaluations() []Evaluation { return s.evaluations }

// fork returns a child state continuing from heap.
func (s *ExecutionState) fork(id int, heap *HeapState) *ExecutionState {
	other := &ExecutionState{
		id:          id,
		parent:      s,
		heap:        heap,
		pc:          s.pc,
		line:        s.line,
		status:      ExecutionStatusRunning,
		evaluations: s.evaluations[:len(s.evaluations):len(s.evaluations)],
	}
	s.children = append(s.children, other)
	return other
}

// Dump returns a human readable description of the state.
func (s *ExecutionState) Dump() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "== STATE #%d (%s) ==\n", s.id, s.status)
	if s.reason != "" {
		fmt.Fprintf(&buf, "reason: %s\n", s.reason)
	}
	for _, ev := range s.evaluations {
		fmt.Fprintf(&buf, "eval: %s\n", ev)
	}
	buf.WriteString(s.heap.Dump())
	return buf.String()
}

// Executor runs a program over the memory graph, forking the path whenever
// the evaluation of a statement forks.
type Executor struct {
	evaluator  *Evaluator
	program    []Stmt
	root       *ExecutionState
	stateIDSeq int

	// Search strategy for the executor. Defaults to depth-first.
	Searcher Searcher
}

// NewExecutor returns a new instance of Executor.
func NewExecutor(evaluator *Evaluator, program []Stmt) *Executor {
	e := &Executor{
		evaluator: evaluator,
		program:   program,
		Searcher:  NewDFSSearcher(),
	}
	e.root = &ExecutionState{
		id:     e.nextStateID(),
		heap:   evaluator.NewState(),
		status: ExecutionStatusRunning,
	}
	return e
}

// RootState returns the initial state of the program.
func (e *Executor) RootState() *ExecutionState { return e.root }

// nextStateID returns the next autoincrementing state ID.
func (e *Executor) nextStateID() int {
	e.stateIDSeq++
	return e.stateIDSeq
}

// Run explores every path of the program and returns the terminated states
// in the order they terminated.
func (e *Executor) Run(ctx context.Context) ([]*ExecutionState, error) {
	e.Searcher.AddState(e.root)

	var terminated []*ExecutionState
	for {
		if err := ctx.Err(); err != nil {
			return terminated, err
		}

		state, err := e.ExecuteNextState()
		if err == ErrNoStateAvailable {
			return terminated, nil
		} else if err != nil {
			return terminated, err
		} else if state.Terminated() {
			terminated = append(terminated, state)
		}
	}
}

// ExecuteNextState executes the next available state until it terminates or
// forks. This can be called continually until ErrNoStateAvailable is returned.
func (e *Executor) ExecuteNextState() (*ExecutionState, error) {
	state := e.Searcher.SelectState()
	if state == nil {
		return nil, ErrNoStateAvailable
	}

	execLog.Debugf("state #%d: begin at statement %d", state.id, state.pc)
	for !state.Terminated() {
		if state.pc >= len(e.program) {
			state.status = ExecutionStatusFinished
			break
		}

		stmt := e.program[state.pc]
		state.line = stmt.Edge().Line
		execLog.Debugf("state #%d: exec %s", state.id, stmt)

		steps, err := e.executeStmt(state, stmt)
		var codeErr *UnrecognizedCodeError
		if errors.As(err, &codeErr) {
			execLog.Warningf("state #%d: %s", state.id, err)
			state.status, state.reason = ExecutionStatusFailed, err.Error()
			break
		} else if err != nil {
			return state, errors.Wrapf(err, "line %d", stmt.Edge().Line)
		}

		switch len(steps) {
		case 0:
			state.status = ExecutionStatusInfeasible
			state.reason = fmt.Sprintf("%s cannot hold", stmt)
		case 1:
			e.advance(state, steps[0])
		default:
			execLog.Infof("state #%d: fork into %d states at %s", state.id, len(steps), stmt)
			for _, step := range steps {
				child := state.fork(e.nextStateID(), step.heap)
				e.advance(child, step)

				// Terminated children also go through the searcher so
				// that Run reports every leaf.
				e.Searcher.AddState(child)
			}
			return state, nil
		}
	}
	return state, nil
}

// step is the outcome of a statement on one path.
type step struct {
	heap *HeapState
	eval *Evaluation
}

// advance applies a step to state and moves it past the statement.
func (e *Executor) advance(state *ExecutionState, s step) {
	state.heap = s.heap
	state.pc++
	if s.eval != nil {
		state.evaluations = append(state.evaluations, *s.eval)
	}
	if s.heap.HasFault() {
		state.status = ExecutionStatusFaulted
		state.reason = strings.Join(s.heap.Reasons(), "; ")
		execLog.Infof("state #%d: %s", state.id, state.reason)
	}
}

func (e *Executor) executeStmt(state *ExecutionState, stmt Stmt) ([]step, error) {
	switch stmt := stmt.(type) {
	case *DeclStmt:
		return e.executeDeclStmt(state, stmt)
	case *AssignStmt:
		return e.assign(stmt.LHS, stmt.RHS, state.heap, stmt.Edge())
	case *AssumeStmt:
		return e.executeAssumeStmt(state, stmt)
	case *EvalStmt:
		return e.executeEvalStmt(state, stmt)
	default:
		return nil, errors.Errorf("illegal statement: %T", stmt)
	}
}

func (e *Executor) executeDeclStmt(state *ExecutionState, stmt *DeclStmt) ([]step, error) {
	edge := stmt.Edge()
	id := &c.IdExpr{Name: stmt.Decl.Name, Decl: stmt.Decl}
	if stmt.Init != nil {
		return e.assign(id, stmt.Init, state.heap, edge)
	}

	addrs, err := e.evaluator.EvaluateAddress(id, state.heap, edge)
	if err != nil {
		return nil, err
	}
	steps := make([]step, len(addrs))
	for i, a := range addrs {
		steps[i] = step{heap: a.State}
	}
	return steps, nil
}

// assign stores the value of rhs into lhs. Integer values are converted to
// the type of lhs.
func (e *Executor) assign(lhs, rhs c.Expr, heap *HeapState, edge *c.Edge) ([]step, error) {
	if lhs.Type().IsAggregate() {
		return nil, newError(UnsupportedCode, lhs, "assignment of %s", lhs.Type())
	}

	ev := e.evaluator
	addrs, err := ev.EvaluateLValue(lhs, heap, edge)
	if err != nil {
		return nil, err
	}

	var steps []step
	for _, a := range addrs {
		size, err := ev.SizeofBits(lhs.Type(), a.State, edge, lhs)
		if err != nil {
			return nil, err
		}

		values, err := ev.evaluateFolded(rhs, a.State, edge)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			value, heap := v.Value, v.State
			if lhs.Type().IsInteger() {
				if k, ok := heap.GetExplicit(value); ok {
					if t := ev.machine.Truncate(k, lhs.Type()); t != k {
						value, heap = heap.InternExplicit(t)
					}
				}
			}
			steps = append(steps, step{heap: ev.WriteBits(a.Value, size, value, heap)})
		}
	}
	return steps, nil
}

func (e *Executor) executeAssumeStmt(state *ExecutionState, stmt *AssumeStmt) ([]step, error) {
	heaps, err := e.evaluator.Assume(stmt.Cond, stmt.Truth, state.heap, stmt.Edge())
	if err != nil {
		return nil, err
	}
	steps := make([]step, len(heaps))
	for i, heap := range heaps {
		steps[i] = step{heap: heap}
	}
	return steps, nil
}

func (e *Executor) executeEvalStmt(state *ExecutionState, stmt *EvalStmt) ([]step, error) {
	results, err := e.evaluator.evaluateFolded(stmt.Expr, state.heap, stmt.Edge())
	if err != nil {
		return nil, err
	}

	steps := make([]step, len(results))
	for i, r := range results {
		eval := &Evaluation{Stmt: stmt, Value: r.Value, Explicit: UnknownExplicit}
		if k, ok := r.State.GetExplicit(r.Value); ok {
			eval.Explicit = KnownExplicit(k)
		}
		steps[i] = step{heap: r.State, eval: eval}
	}
	return steps, nil
}

// Searcher represents a strategy for finding the next execution state to execute.
type Searcher interface {
	// Returns the next state to explore.
	SelectState() *ExecutionState

	// Adds states to the current searcher.
	AddState(state *ExecutionState)
}

// DFSSearcher represents a searcher with a depth-first search strategy.
type DFSSearcher struct {
	states []*ExecutionState
}

// NewDFSSearcher returns a new instance of DFSSearcher.
func NewDFSSearcher() *DFSSearcher {
	return &DFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *DFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[len(s.states)-1]
	s.states = s.states[:len(s.states)-1]
	return state
}

// AddState adds a new state to the searcher.
func (s *DFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// BFSSearcher represents a searcher with a breadth-first search strategy.
type BFSSearcher struct {
	states []*ExecutionState
}

// NewBFSSearcher returns a new instance of BFSSearcher.
func NewBFSSearcher() *BFSSearcher {
	return &BFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *BFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[0]
	s.states = s.states[1:]
	return state
}

// AddState adds a new state to the searcher.
func (s *BFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}
