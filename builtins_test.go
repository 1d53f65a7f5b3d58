package smg_test

import (
	"strings"
	"testing"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
)

var (
	mallocDecl = Func("malloc", c.NewPointer(c.VoidType), false, c.ULongType)
	callocDecl = Func("calloc", c.NewPointer(c.VoidType), false, c.ULongType, c.ULongType)
	allocaDecl = Func("alloca", c.NewPointer(c.VoidType), false, c.ULongType)
	freeDecl   = Func("free", c.VoidType, false, c.NewPointer(c.VoidType))
)

func TestEvaluator_Malloc(t *testing.T) {
	t.Run("MayFail", func(t *testing.T) {
		e := NewEvaluator()
		state := e.NewState()
		results := MustEvaluate(t, e, Call(mallocDecl, Int(16)), state)
		if len(results) != 2 {
			t.Fatalf("unexpected result count: %d", len(results))
		}

		av := results[0].Value.(smg.AddressValue)
		if obj := av.Address.Object; obj.Kind != smg.HeapObject || obj.SizeBits != 128 {
			t.Fatalf("unexpected object: %s", obj)
		} else if obj.Label != "malloc" {
			t.Fatalf("unexpected label: %s", obj.Label)
		}

		if !smg.IsZero(results[1].Value) {
			t.Fatalf("expected null, got %s", results[1].Value)
		} else if results[1].State != state {
			t.Fatal("expected failure on the original state")
		}
	})

	t.Run("NoFailure", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.EnableMallocFailure = false })
		if results := MustEvaluate(t, e, Call(mallocDecl, Int(16)), e.NewState()); len(results) != 1 {
			t.Fatalf("unexpected result count: %d", len(results))
		}
	})

	t.Run("Label", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.EnableMallocFailure = false })
		results, err := e.Evaluate(Call(mallocDecl, Int(4)), e.NewState(), &c.Edge{Line: 12})
		if err != nil {
			t.Fatal(err)
		} else if label := results[0].Value.(smg.AddressValue).Address.Object.Label; label != "malloc@12" {
			t.Fatalf("unexpected label: %s", label)
		}
	})

	t.Run("UnknownSize", func(t *testing.T) {
		e := NewEvaluator()
		r := MustEvaluateSingle(t, e, Call(mallocDecl, Local("n", c.ULongType)), e.NewState())
		if !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})

	t.Run("GuessedSize", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) {
			o.EnableMallocFailure = false
			o.GuessSizeOfUnknownMemorySize = true
			o.ForcedGuess = 8
		})
		r := MustEvaluateSingle(t, e, Call(mallocDecl, Local("n", c.ULongType)), e.NewState())
		if obj := r.Value.(smg.AddressValue).Address.Object; obj == nil || obj.SizeBits != 64 {
			t.Fatalf("unexpected object: %s", obj)
		}
	})

	t.Run("ReadOnly", func(t *testing.T) {
		e := NewReadOnlyEvaluator()
		r := MustEvaluateSingle(t, e, Call(mallocDecl, Int(16)), e.NewState())
		if !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		} else if n := len(r.State.Objects()); n != 1 {
			t.Fatalf("unexpected object count: %d", n)
		}
	})
}

func TestEvaluator_Calloc(t *testing.T) {
	e := NewEvaluator(func(o *smg.Options) { o.EnableMallocFailure = false })
	r := MustEvaluateSingle(t, e, Call(callocDecl, Int(3), Int(4)), e.NewState())
	obj := r.Value.(smg.AddressValue).Address.Object
	if obj.SizeBits != 96 {
		t.Fatalf("unexpected size: %d", obj.SizeBits)
	} else if v, _ := r.State.ReadBits(obj, 32, 32); v != smg.Zero {
		t.Fatalf("expected zeroed memory, got %s", v)
	}
}

func TestEvaluator_Alloca(t *testing.T) {
	e := NewEvaluator()
	results := MustEvaluate(t, e, Call(allocaDecl, Int(8)), e.NewState())
	if len(results) != 1 {
		t.Fatalf("alloca must not fail, got %d results", len(results))
	} else if obj := results[0].Value.(smg.AddressValue).Address.Object; obj.Kind != smg.StackObject {
		t.Fatalf("unexpected object: %s", obj)
	}
}

func TestEvaluator_Free(t *testing.T) {
	// alloc returns a pointer to a fresh heap object and a state holding it in p.
	alloc := func(tb testing.TB, e *smg.Evaluator, p *c.IdExpr) *smg.HeapState {
		tb.Helper()
		r := MustEvaluateSingle(tb, e, Call(mallocDecl, Int(8)), e.NewState())
		dst := MustAddress(tb, e, p, r.State)
		return e.WriteBits(dst.Value, 64, r.Value, dst.State)
	}
	noFail := func(o *smg.Options) { o.EnableMallocFailure = false }

	t.Run("OK", func(t *testing.T) {
		e := NewEvaluator(noFail)
		p := Local("p", c.NewPointer(c.CharType))
		state := alloc(t, e, p)

		r := MustEvaluateSingle(t, e, Call(freeDecl, p), state)
		if r.State.HasFault() {
			t.Fatalf("unexpected fault: %v", r.State.Reasons())
		}
		ptr := MustEvaluateSingle(t, e, p, r.State).Value.(smg.AddressValue)
		if r.State.IsObjectValid(ptr.Address.Object) {
			t.Fatal("expected freed object")
		}

		// Reading through the dangling pointer is invalid.
		if r := MustEvaluateSingle(t, e, Deref(p), r.State); !r.State.HasInvalidRead() {
			t.Fatal("expected invalid read")
		}
	})

	t.Run("DoubleFree", func(t *testing.T) {
		e := NewEvaluator(noFail)
		p := Local("p", c.NewPointer(c.CharType))
		state := alloc(t, e, p)

		r := MustEvaluateSingle(t, e, Call(freeDecl, p), state)
		r = MustEvaluateSingle(t, e, Call(freeDecl, p), r.State)
		if !r.State.HasInvalidFree() {
			t.Fatal("expected invalid free")
		} else if reasons := r.State.Reasons(); len(reasons) != 1 || !strings.HasPrefix(reasons[0], "double free") {
			t.Fatalf("unexpected reasons: %v", reasons)
		}
	})

	t.Run("Null", func(t *testing.T) {
		e := NewEvaluator()
		r := MustEvaluateSingle(t, e, Call(freeDecl, Cast(c.NewPointer(c.VoidType), Int(0))), e.NewState())
		if r.State.HasFault() {
			t.Fatal("unexpected fault")
		}
	})

	t.Run("Stack", func(t *testing.T) {
		e := NewEvaluator()
		r := MustEvaluateSingle(t, e, Call(freeDecl, AddrOf(Local("x", c.IntType))), e.NewState())
		if !r.State.HasInvalidFree() {
			t.Fatal("expected invalid free")
		}
	})

	t.Run("Interior", func(t *testing.T) {
		e := NewEvaluator(noFail)
		p := Local("p", c.NewPointer(c.CharType))
		state := alloc(t, e, p)
		r := MustEvaluateSingle(t, e, Call(freeDecl, Binary(c.Plus, p, Int(1))), state)
		if !r.State.HasInvalidFree() {
			t.Fatal("expected invalid free")
		}
	})
}

func TestEvaluator_ExternalFunction(t *testing.T) {
	ext := Func("get_buffer", c.NewPointer(c.CharType), false)

	t.Run("AssumeSafe", func(t *testing.T) {
		e := NewEvaluator()
		if r := MustEvaluateSingle(t, e, Call(ext), e.NewState()); !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})

	t.Run("Strict", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.ExternalFunctionPolicy = smg.PolicyStrict })
		if _, err := e.Evaluate(Call(ext), e.NewState(), nil); err == nil {
			t.Fatal("expected error")
		} else if kind, _ := smg.ErrorKindOf(err); kind != smg.UnknownExternalFunction {
			t.Fatalf("unexpected error: %s", err)
		}

		// Defined functions and safe functions are never rejected.
		defined := Func("helper", c.IntType, true)
		if _, err := e.Evaluate(Call(defined), e.NewState(), nil); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("SafeFunction", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) {
			o.ExternalFunctionPolicy = smg.PolicyStrict
			o.SafeFunctions = []string{"get_buffer"}
		})
		if _, err := e.Evaluate(Call(ext), e.NewState(), nil); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("ExternalAllocated", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.ExternalFunctionPolicy = smg.PolicyAssumeExternalAllocated })
		r := MustEvaluateSingle(t, e, Call(ext), e.NewState())
		if obj := r.Value.(smg.AddressValue).Address.Object; obj == nil || obj.Kind != smg.ExternalObject {
			t.Fatalf("unexpected object: %s", obj)
		} else if obj.SizeBits != 64 {
			t.Fatalf("unexpected size: %d", obj.SizeBits)
		}
	})

	t.Run("Nondet", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.ExternalFunctionPolicy = smg.PolicyStrict })
		fn := Func("__VERIFIER_nondet_int", c.IntType, false)
		r := MustEvaluateSingle(t, e, Call(fn), e.NewState())
		if _, ok := r.Value.(smg.SymbolicValue); !ok {
			t.Fatalf("unexpected value: %#v", r.Value)
		}
	})

	t.Run("Register", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.ExternalFunctionPolicy = smg.PolicyStrict })
		e.Register("answer", func(e *smg.Evaluator, call *c.CallExpr, state *smg.HeapState, edge *c.Edge) ([]smg.ValueResult, error) {
			v, state := state.InternExplicit(42)
			return []smg.ValueResult{{Value: v, State: state}}, nil
		})
		if k, _ := MustExplicit(t, e, Call(Func("answer", c.IntType, false)), e.NewState()); k != 42 {
			t.Fatalf("unexpected value: %d", k)
		}
	})
}
