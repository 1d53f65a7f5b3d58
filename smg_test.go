package smg_test

import (
	"testing"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
)

// NewEvaluator returns a mutating evaluator for LP64 with default options
// modified by fns.
func NewEvaluator(fns ...func(*smg.Options)) *smg.Evaluator {
	opt := smg.DefaultOptions()
	for _, fn := range fns {
		fn(&opt)
	}
	return smg.NewEvaluator(c.LP64, opt)
}

// NewReadOnlyEvaluator returns a read-only evaluator for LP64.
func NewReadOnlyEvaluator() *smg.Evaluator {
	return smg.NewReadOnlyEvaluator(c.LP64, smg.DefaultOptions())
}

// Int returns an int literal.
func Int(v int64) *c.IntLiteral { return &c.IntLiteral{Value: v, T: c.IntType} }

// Local returns a reference to a new local variable.
func Local(name string, typ *c.Type) *c.IdExpr {
	return &c.IdExpr{Name: name, Decl: c.NewVariable(name, typ, false)}
}

// Global returns a reference to a new global variable.
func Global(name string, typ *c.Type) *c.IdExpr {
	return &c.IdExpr{Name: name, Decl: c.NewVariable(name, typ, true)}
}

// Func returns a function declaration returning result.
func Func(name string, result *c.Type, defined bool, params ...*c.Type) *c.Decl {
	return c.NewFunctionDecl(name, c.NewFunction(result, params, false), defined)
}

// Binary returns l op r typed the way a C compiler would type it.
func Binary(op c.BinaryOp, l, r c.Expr) *c.BinaryExpr {
	lt, rt := l.Type(), r.Type()

	var typ *c.Type
	switch {
	case op.IsRelational():
		typ = c.IntType
	case lt.IsAddress() && rt.IsAddress():
		typ = c.LongType
	case lt.IsAddress():
		typ = c.NewPointer(lt.Pointee())
	case rt.IsAddress():
		typ = c.NewPointer(rt.Pointee())
	default:
		typ = c.LP64.CommonType(lt, rt)
	}
	return &c.BinaryExpr{Op: op, Left: l, Right: r, T: typ}
}

// Unary returns op x with x's promoted type.
func Unary(op c.UnaryOp, x c.Expr) *c.UnaryExpr {
	typ := c.LP64.Promote(x.Type())
	if op == c.UnaryNot {
		typ = c.IntType
	}
	return &c.UnaryExpr{Op: op, Operand: x, T: typ}
}

// AddrOf returns &x.
func AddrOf(x c.Expr) *c.UnaryExpr {
	return &c.UnaryExpr{Op: c.UnaryAmper, Operand: x, T: c.NewPointer(x.Type())}
}

// Deref returns *x.
func Deref(x c.Expr) *c.PointerExpr {
	return &c.PointerExpr{Operand: x, T: x.Type().Pointee()}
}

// Index returns a[i].
func Index(a, i c.Expr) *c.ArraySubscript {
	return &c.ArraySubscript{Array: a, Subscript: i, T: a.Type().Pointee()}
}

// Field returns owner.name.
func Field(owner c.Expr, name string) *c.FieldRef {
	return &c.FieldRef{Owner: owner, Name: name, T: owner.Type().Field(name).Type}
}

// Arrow returns owner->name.
func Arrow(owner c.Expr, name string) *c.FieldRef {
	return &c.FieldRef{Owner: owner, Name: name, Deref: true, T: owner.Type().Pointee().Field(name).Type}
}

// Cast returns (typ)x.
func Cast(typ *c.Type, x c.Expr) *c.CastExpr { return &c.CastExpr{Operand: x, T: typ} }

// Call returns a direct call to decl.
func Call(decl *c.Decl, args ...c.Expr) *c.CallExpr {
	return &c.CallExpr{Func: &c.IdExpr{Name: decl.Name, Decl: decl}, Args: args, T: decl.Type.Elem}
}

// NewNodeType returns struct node { struct node *next; int v; }.
func NewNodeType() *c.Type {
	typ := c.NewStruct("node")
	typ.Fields = []*c.Field{
		{Name: "next", Type: c.NewPointer(typ)},
		{Name: "v", Type: c.IntType},
	}
	return typ
}

// MustEvaluate evaluates expr. Fatal on error.
func MustEvaluate(tb testing.TB, e *smg.Evaluator, expr c.Expr, state *smg.HeapState) []smg.ValueResult {
	tb.Helper()
	results, err := e.Evaluate(expr, state, nil)
	if err != nil {
		tb.Fatal(err)
	} else if len(results) == 0 {
		tb.Fatalf("no results: %s", expr)
	}
	return results
}

// MustEvaluateSingle evaluates expr and expects exactly one result.
func MustEvaluateSingle(tb testing.TB, e *smg.Evaluator, expr c.Expr, state *smg.HeapState) smg.ValueResult {
	tb.Helper()
	results := MustEvaluate(tb, e, expr, state)
	if len(results) != 1 {
		tb.Fatalf("%s: expected one result, got %d", expr, len(results))
	}
	return results[0]
}

// MustAddress evaluates the address of expr and expects exactly one result.
func MustAddress(tb testing.TB, e *smg.Evaluator, expr c.Expr, state *smg.HeapState) smg.AddressResult {
	tb.Helper()
	results, err := e.EvaluateAddress(expr, state, nil)
	if err != nil {
		tb.Fatal(err)
	} else if len(results) != 1 {
		tb.Fatalf("%s: expected one result, got %d", expr, len(results))
	}
	return results[0]
}

// MustExplicit evaluates expr to a known explicit value. Fatal if the value
// is unknown or the evaluation forked.
func MustExplicit(tb testing.TB, e *smg.Evaluator, expr c.Expr, state *smg.HeapState) (int64, *smg.HeapState) {
	tb.Helper()
	r, deferred, err := e.EvaluateExplicit(expr, state, nil)
	if err != nil {
		tb.Fatal(err)
	} else if len(deferred) != 0 {
		tb.Fatalf("%s: unexpected deferred results: %d", expr, len(deferred))
	} else if !r.Value.Known {
		tb.Fatalf("%s: explicit value unknown", expr)
	}
	return r.Value.Value, r.State
}

// MustAssume assumes expr evaluates to truth. Fatal on error.
func MustAssume(tb testing.TB, e *smg.Evaluator, expr c.Expr, truth bool, state *smg.HeapState) []*smg.HeapState {
	tb.Helper()
	states, err := e.Assume(expr, truth, state, nil)
	if err != nil {
		tb.Fatal(err)
	}
	return states
}
