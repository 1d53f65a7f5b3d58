package smg_test

import (
	"testing"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
	"github.com/google/go-cmp/cmp"
)

func TestEvaluator_EvaluateAddress(t *testing.T) {
	t.Run("Variable", func(t *testing.T) {
		e := NewEvaluator()
		r := MustAddress(t, e, Local("x", c.IntType), e.NewState())
		if obj := r.Value.Object; obj == nil || obj.Kind != smg.StackObject || obj.SizeBits != 32 {
			t.Fatalf("unexpected object: %s", obj)
		} else if r.Value.Offset != smg.KnownExplicit(0) {
			t.Fatalf("unexpected offset: %s", r.Value.Offset)
		}

		// The storage is reused.
		if other := MustAddress(t, e, Local("x", c.IntType), r.State); !other.Value.Equal(r.Value) {
			t.Fatalf("unexpected address: %s", other.Value)
		}
	})

	t.Run("Field", func(t *testing.T) {
		e := NewEvaluator()
		typ := c.NewStruct("S",
			&c.Field{Name: "x", Type: c.IntType},
			&c.Field{Name: "y", Type: c.CharType},
		)
		s := Local("s", typ)

		r := MustAddress(t, e, Field(s, "y"), e.NewState())
		if r.Value.Object.Label != "s" {
			t.Fatalf("unexpected object: %s", r.Value.Object)
		} else if diff := cmp.Diff(smg.KnownExplicit(32), r.Value.Offset); diff != "" {
			t.Fatalf("unexpected offset: %s", diff)
		}

		// &s.y designates the same address.
		v := MustEvaluateSingle(t, e, AddrOf(Field(s, "y")), e.NewState())
		if av, ok := v.Value.(smg.AddressValue); !ok {
			t.Fatalf("unexpected value: %#v", v.Value)
		} else if av.Address.Object.Label != "s" || av.Address.Offset.Value != 32 {
			t.Fatalf("unexpected address: %s", av.Address)
		}
	})

	t.Run("ArrowField", func(t *testing.T) {
		e := NewEvaluator()
		typ := NewNodeType()
		n := Local("n", typ)
		p := Local("p", c.NewPointer(typ))

		state := e.NewState()
		dst := MustAddress(t, e, p, state)
		ptr := MustEvaluateSingle(t, e, AddrOf(n), dst.State)
		state = e.WriteBits(dst.Value, 64, ptr.Value, ptr.State)

		r := MustAddress(t, e, Arrow(p, "v"), state)
		if r.Value.Object.Label != "n" || r.Value.Offset.Value != 64 {
			t.Fatalf("unexpected address: %s", r.Value)
		}
	})

	t.Run("Element", func(t *testing.T) {
		e := NewEvaluator()
		arr := Local("arr", c.NewArray(c.ShortType, 4))
		r := MustAddress(t, e, Index(arr, Binary(c.Plus, Int(1), Int(2))), e.NewState())
		if r.Value.Offset.Value != 48 {
			t.Fatalf("unexpected offset: %s", r.Value.Offset)
		}
	})

	t.Run("UnknownSubscript", func(t *testing.T) {
		e := NewEvaluator()
		arr := Local("arr", c.NewArray(c.IntType, 4))
		r := MustAddress(t, e, Index(arr, Local("i", c.IntType)), e.NewState())
		if r.Value.Object == nil || r.Value.Object.Label != "arr" {
			t.Fatalf("unexpected object: %s", r.Value.Object)
		} else if r.Value.Offset.Known {
			t.Fatalf("expected unknown offset, got %s", r.Value.Offset)
		}
	})

	t.Run("Function", func(t *testing.T) {
		fn := Func("main", c.IntType, true)
		id := &c.IdExpr{Name: "main", Decl: fn}

		e := NewEvaluator()
		r := MustAddress(t, e, id, e.NewState())
		if obj := r.Value.Object; obj == nil || obj.Kind != smg.FunctionObject {
			t.Fatalf("unexpected object: %s", obj)
		}

		// The read-only evaluator never creates the function object.
		ro := NewReadOnlyEvaluator()
		if r := MustAddress(t, ro, id, ro.NewState()); !r.Value.IsUnknown() {
			t.Fatalf("unexpected address: %s", r.Value)
		}
	})

	t.Run("NonLvalue", func(t *testing.T) {
		e := NewEvaluator()
		x := Local("x", c.IntType)

		if _, err := e.Evaluate(AddrOf(Unary(c.UnaryMinus, x)), e.NewState(), nil); err == nil {
			t.Fatal("expected error")
		} else if !smg.IsNotAnLvalue(err) {
			t.Fatalf("unexpected error: %s", err)
		}

		if _, err := e.EvaluateLValue(Unary(c.UnaryMinus, x), e.NewState(), nil); !smg.IsNotAnLvalue(err) {
			t.Fatalf("unexpected error: %v", err)
		}

		// A plain address request degrades to an unresolved address.
		if r := MustAddress(t, e, Unary(c.UnaryMinus, x), e.NewState()); !r.Value.IsUnknown() {
			t.Fatalf("unexpected address: %s", r.Value)
		}
	})

	t.Run("StackLimit", func(t *testing.T) {
		e := NewEvaluator(func(o *smg.Options) { o.StackLimitBits = 64 })
		state := e.NewState()
		r := MustAddress(t, e, Local("a", c.LongType), state)
		if r.Value.IsUnknown() {
			t.Fatal("expected address")
		}
		if r := MustAddress(t, e, Local("b", c.IntType), r.State); !r.Value.IsUnknown() {
			t.Fatalf("expected unresolved address, got %s", r.Value)
		}
	})

	t.Run("UnknownDereference", func(t *testing.T) {
		e := NewEvaluator()
		p := Cast(c.NewPointer(c.IntType), Local("n", c.LongType))
		r := MustAddress(t, e, Deref(p), e.NewState())
		if !r.Value.IsUnknown() {
			t.Fatalf("unexpected address: %s", r.Value)
		} else if !r.State.HasUnknownDereference() {
			t.Fatal("expected unknown dereference")
		}
	})
}

func TestEvaluator_EvaluateAddressValue(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, elem := range []*c.Type{c.CharType, c.IntType, c.LongType, NewNodeType()} {
			arr := Local("arr", c.NewArray(elem, 10))
			for k := int64(0); k < 10; k++ {
				e := NewEvaluator()
				base := MustEvaluateSingle(t, e, AddrOf(Index(arr, Int(0))), e.NewState())

				fwd := Binary(c.Plus, arr, Int(k))
				back := Binary(c.Minus, fwd, Int(k))
				r := MustEvaluateSingle(t, e, back, base.State)

				want, got := base.Value.(smg.AddressValue), r.Value.(smg.AddressValue)
				if !got.Address.Equal(want.Address) {
					t.Fatalf("%s: got %s, expected %s", elem, got.Address, want.Address)
				} else if got.Value != want.Value {
					t.Fatalf("%s: unexpected identity %s, expected %s", elem, got.Value, want.Value)
				}
			}
		}
	})

	t.Run("Scaled", func(t *testing.T) {
		e := NewEvaluator()
		arr := Local("arr", c.NewArray(c.IntType, 10))
		r := MustEvaluateSingle(t, e, Binary(c.Plus, Int(3), arr), e.NewState())
		if av := r.Value.(smg.AddressValue); av.Address.Offset.Value != 96 {
			t.Fatalf("unexpected offset: %s", av.Address.Offset)
		}
	})

	t.Run("Null", func(t *testing.T) {
		e := NewEvaluator()
		r := MustEvaluateSingle(t, e, Cast(c.NewPointer(c.IntType), Int(0)), e.NewState())
		if !smg.IsZero(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		} else if av := r.Value.(smg.AddressValue); av.Address.Object != smg.Null {
			t.Fatalf("unexpected object: %s", av.Address.Object)
		}
	})

	t.Run("IntegerMinusPointer", func(t *testing.T) {
		e := NewEvaluator()
		arr := Local("arr", c.NewArray(c.IntType, 10))
		expr := &c.BinaryExpr{Op: c.Minus, Left: Int(3), Right: arr, T: c.NewPointer(c.IntType)}
		if _, err := e.Evaluate(expr, e.NewState(), nil); err == nil {
			t.Fatal("expected error")
		} else if kind, _ := smg.ErrorKindOf(err); kind != smg.UnsupportedCode {
			t.Fatalf("unexpected error: %s", err)
		}
	})

	t.Run("NonAdditiveOperator", func(t *testing.T) {
		e := NewEvaluator()
		p := Local("p", c.NewPointer(c.IntType))
		for _, op := range []c.BinaryOp{c.Multiply, c.Divide, c.BinaryAnd} {
			expr := &c.BinaryExpr{Op: op, Left: p, Right: Int(2), T: p.Type()}
			if _, err := e.EvaluateAddressValue(expr, e.NewState(), nil); err == nil {
				t.Fatalf("%s: expected error", op)
			} else if kind, _ := smg.ErrorKindOf(err); kind != smg.UnsupportedCode {
				t.Fatalf("%s: unexpected error: %s", op, err)
			}
		}
	})

	t.Run("PointerPlusPointer", func(t *testing.T) {
		e := NewEvaluator()
		p, q := Local("p", c.NewPointer(c.IntType)), Local("q", c.NewPointer(c.IntType))
		expr := &c.BinaryExpr{Op: c.Plus, Left: p, Right: q, T: p.Type()}
		if _, err := e.EvaluateAddressValue(expr, e.NewState(), nil); err == nil {
			t.Fatal("expected error")
		} else if kind, _ := smg.ErrorKindOf(err); kind != smg.UnsupportedCode {
			t.Fatalf("unexpected error: %s", err)
		}
	})

	t.Run("StringLiteral", func(t *testing.T) {
		e := NewEvaluator()
		lit := &c.StringLiteral{Value: "abc", T: c.NewArray(c.CharType, 4)}
		if r := MustEvaluateSingle(t, e, lit, e.NewState()); !smg.IsUnknown(r.Value) {
			t.Fatalf("unexpected value: %s", r.Value)
		}
	})
}

func TestEvaluator_SizeofBits(t *testing.T) {
	t.Run("Fixed", func(t *testing.T) {
		e := NewEvaluator()
		if size, err := e.SizeofBits(c.NewArray(c.IntType, 3), e.NewState(), nil, nil); err != nil {
			t.Fatal(err)
		} else if size != 96 {
			t.Fatalf("unexpected size: %d", size)
		}
	})

	t.Run("Incomplete", func(t *testing.T) {
		e := NewEvaluator()
		if _, err := e.SizeofBits(c.NewStruct("opaque"), e.NewState(), nil, nil); !smg.IsUnrecognizedType(err) {
			t.Fatalf("unexpected error: %v", err)
		} else if _, err := e.SizeofBitsOrDefault(c.NewStruct("opaque"), e.NewState(), nil, nil, 8); !smg.IsUnrecognizedType(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("VariableLength", func(t *testing.T) {
		e := NewEvaluator()
		n := Local("n", c.IntType)
		typ := c.NewVariableArray(c.IntType, n)
		v := Local("v", typ)

		states := MustAssume(t, e, Binary(c.Equals, n, Int(4)), true, e.NewState())
		edge := &c.Edge{Decl: v.Decl, Line: 2}
		addrs, err := e.EvaluateAddress(v, states[0], edge)
		if err != nil {
			t.Fatal(err)
		} else if obj := addrs[0].Value.Object; obj.SizeBits != 128 {
			t.Fatalf("unexpected storage size: %d", obj.SizeBits)
		}

		// After the declaration the size comes from the storage.
		sizeof := &c.UnaryExpr{Op: c.UnarySizeof, Operand: v, T: c.ULongType}
		if k, _ := MustExplicit(t, e, sizeof, addrs[0].State); k != 16 {
			t.Fatalf("unexpected size: %d", k)
		}
	})

	t.Run("VariableLengthDefault", func(t *testing.T) {
		e := NewEvaluator()
		typ := c.NewVariableArray(c.IntType, Local("n", c.IntType))
		v := Local("v", typ)
		edge := &c.Edge{Decl: v.Decl}

		if _, err := e.SizeofBits(typ, e.NewState(), edge, nil); !smg.IsUnrecognizedType(err) {
			t.Fatalf("unexpected error: %v", err)
		} else if size, err := e.SizeofBitsOrDefault(typ, e.NewState(), edge, nil, 64); err != nil {
			t.Fatal(err)
		} else if size != 64 {
			t.Fatalf("unexpected size: %d", size)
		}
	})

	t.Run("VariableLengthForked", func(t *testing.T) {
		e := NewEvaluator()
		node := NewNodeType()
		nodeBits, _ := c.LP64.SizeofBits(node)

		// p points into a possibly-empty list whose nodes hold v == 3.
		state := e.NewState()
		seg, state := state.AddListSegment(nodeBits, 0, 0, "list")
		state = state.WriteValue(seg, 0, 64, smg.Zero)
		three, state := state.InternExplicit(3)
		state = state.WriteValue(seg, 64, 32, three)
		ptr := state.PointerFromAddress(smg.NewAddress(seg, 0))[0]

		p := Local("p", c.NewPointer(node))
		dst := MustAddress(t, e, p, ptr.State)
		state = e.WriteBits(dst.Value, 64, ptr.Value.Value, dst.State)

		a := Local("a", c.NewVariableArray(c.IntType, Arrow(p, "v")))
		results, err := e.EvaluateAddress(a, state, &c.Edge{Decl: a.Decl})
		if err != nil {
			t.Fatal(err)
		} else if len(results) != 2 {
			t.Fatalf("unexpected result count: %d", len(results))
		}

		// Empty list: the length is read through NULL.
		if addr := results[0].Value; !addr.IsUnknown() {
			t.Fatalf("expected unknown address, got %s", addr)
		}

		// One node: the array holds three elements.
		if obj := results[1].Value.Object; obj == nil || obj.SizeBits != 96 {
			t.Fatalf("unexpected storage: %v", obj)
		}
		sizeof := &c.UnaryExpr{Op: c.UnarySizeof, Operand: a, T: c.ULongType}
		if k, _ := MustExplicit(t, e, sizeof, results[1].State); k != 12 {
			t.Fatalf("unexpected size: %d", k)
		}

		// Sizes that differ between branches have no single size.
		if _, err := e.SizeofBits(a.Decl.Type, state, &c.Edge{Decl: a.Decl}, nil); !smg.IsUnrecognizedType(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("VariableLengthUnknown", func(t *testing.T) {
		e := NewEvaluator()
		typ := c.NewVariableArray(c.IntType, Local("n", c.IntType))
		v := Local("v", typ)
		if _, err := e.EvaluateAddress(v, e.NewState(), &c.Edge{Decl: v.Decl}); !smg.IsUnrecognizedType(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
