package smg_test

import (
	"testing"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
	"github.com/google/go-cmp/cmp"
)

func TestEvaluator_EvaluateScalar(t *testing.T) {
	t.Run("LiteralInterning", func(t *testing.T) {
		e := NewEvaluator()
		state := e.NewState()

		r0 := MustEvaluateSingle(t, e, Int(42), state)
		r1 := MustEvaluateSingle(t, e, Int(42), state)
		if diff := cmp.Diff(r0.Value, r1.Value); diff != "" {
			t.Fatalf("unexpected identity: %s", diff)
		}

		// Evaluating on the returned state reuses the binding.
		r2 := MustEvaluateSingle(t, e, Int(42), r0.State)
		if diff := cmp.Diff(r0.Value, r2.Value); diff != "" {
			t.Fatalf("unexpected identity: %s", diff)
		} else if r2.State != r0.State {
			t.Fatal("expected unchanged state")
		}

		// A different constant has a different identity.
		if r := MustEvaluateSingle(t, e, Int(43), r0.State); r.Value == r0.Value {
			t.Fatalf("unexpected shared identity: %s", r.Value)
		}
	})

	t.Run("Zero", func(t *testing.T) {
		e := NewEvaluator()
		if r := MustEvaluateSingle(t, e, Int(0), e.NewState()); r.Value != smg.Zero {
			t.Fatalf("unexpected value: %s", r.Value)
		} else if r := MustEvaluateSingle(t, e, &c.FloatLiteral{Value: 0, T: c.DoubleType}, e.NewState()); r.Value != smg.Zero {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})

	t.Run("Arithmetic", func(t *testing.T) {
		x := Local("x", c.IntType)
		for _, tt := range []struct {
			name string
			expr c.Expr
			zero bool
		}{
			{"ZeroPlusZero", Binary(c.Plus, Int(0), Int(0)), true},
			{"ZeroPlusOne", Binary(c.Plus, Int(0), Int(1)), false},
			{"TimesZero", Binary(c.Multiply, x, Int(0)), true},
			{"AndZero", Binary(c.BinaryAnd, Int(0), x), true},
			{"SelfMinus", Binary(c.Minus, x, x), true},
			{"SelfModulo", Binary(c.Modulo, x, x), true},
			{"ZeroDivided", Binary(c.Divide, Int(0), Int(3)), true},
			{"DividedByZero", Binary(c.Divide, Int(0), Int(0)), false},
			{"NegatedZero", Unary(c.UnaryMinus, Int(0)), true},
			{"Complement", Unary(c.UnaryTilde, Int(0)), false},
			{"Variable", Binary(c.Plus, x, Int(0)), false},
		} {
			t.Run(tt.name, func(t *testing.T) {
				e := NewEvaluator()
				r := MustEvaluateSingle(t, e, tt.expr, e.NewState())
				if tt.zero && r.Value != smg.Zero {
					t.Fatalf("%s: expected zero, got %s", tt.expr, r.Value)
				} else if !tt.zero && !smg.IsUnknown(r.Value) {
					t.Fatalf("%s: expected unknown, got %s", tt.expr, r.Value)
				}
			})
		}
	})

	t.Run("Relational", func(t *testing.T) {
		e := NewEvaluator()

		// A false comparison is exactly zero.
		if r := MustEvaluateSingle(t, e, Binary(c.Equals, Int(1), Int(2)), e.NewState()); r.Value != smg.Zero {
			t.Fatalf("unexpected value: %s", r.Value)
		}

		// A true comparison is not represented precisely.
		if r := MustEvaluateSingle(t, e, Binary(c.Equals, Int(2), Int(2)), e.NewState()); !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		}

		if r := MustEvaluateSingle(t, e, Unary(c.UnaryNot, Int(2)), e.NewState()); r.Value != smg.Zero {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})

	t.Run("Variable", func(t *testing.T) {
		e := NewEvaluator()
		x := Local("x", c.IntType)

		r0 := MustEvaluateSingle(t, e, x, e.NewState())
		if _, ok := r0.Value.(smg.SymbolicValue); !ok {
			t.Fatalf("unexpected value: %#v", r0.Value)
		}

		// The value read is stored so the next read agrees.
		if r1 := MustEvaluateSingle(t, e, x, r0.State); r1.Value != r0.Value {
			t.Fatalf("unexpected value: %s", r1.Value)
		}
	})

	t.Run("Global", func(t *testing.T) {
		e := NewEvaluator()
		if r := MustEvaluateSingle(t, e, Global("g", c.IntType), e.NewState()); r.Value != smg.Zero {
			t.Fatalf("expected zero-initialized global, got %s", r.Value)
		}
	})

	t.Run("PointerDifference", func(t *testing.T) {
		e := NewEvaluator()
		arr := Local("arr", c.NewArray(c.LongType, 8))
		expr := Binary(c.Minus, AddrOf(Index(arr, Int(6))), AddrOf(Index(arr, Int(2))))
		if v, _ := MustExplicit(t, e, expr, e.NewState()); v != 4 {
			t.Fatalf("unexpected difference: %d", v)
		}

		a, b := Local("a", c.LongType), Local("b", c.LongType)
		if r := MustEvaluateSingle(t, e, Binary(c.Minus, AddrOf(a), AddrOf(b)), e.NewState()); !smg.IsUnknown(r.Value) {
			t.Fatalf("expected unknown difference, got %s", r.Value)
		}
	})

	t.Run("Cast", func(t *testing.T) {
		e := NewEvaluator()
		x := Local("x", c.IntType)

		// A pointer converted to an integer keeps its identity.
		r := MustEvaluateSingle(t, e, Cast(c.LongType, AddrOf(x)), e.NewState())
		if av, ok := r.Value.(smg.AddressValue); !ok {
			t.Fatalf("unexpected value: %#v", r.Value)
		} else if av.Address.Object.Label != "x" {
			t.Fatalf("unexpected object: %s", av.Address.Object)
		}

		// A known integer is truncated to the target type.
		r = MustEvaluateSingle(t, e, Cast(c.CharType, Int(257)), e.NewState())
		if k, ok := r.State.GetExplicit(r.Value); !ok || k != 1 {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})

	t.Run("MistypedAddressOf", func(t *testing.T) {
		e := NewEvaluator()
		expr := &c.UnaryExpr{Op: c.UnaryAmper, Operand: Local("a", c.IntType), T: c.LongType}
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		e.EvaluateScalar(expr, e.NewState(), nil)
	})

	t.Run("ReadOnlyCall", func(t *testing.T) {
		e := NewReadOnlyEvaluator()
		fn := Func("rand", c.IntType, false)
		if r := MustEvaluateSingle(t, e, Call(fn), e.NewState()); !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})
}
