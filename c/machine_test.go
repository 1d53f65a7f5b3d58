package c_test

import (
	"testing"

	"github.com/benbjohnson/smg/c"
)

func TestMachine_SizeofBits(t *testing.T) {
	t.Run("Basic", func(t *testing.T) {
		for _, tt := range []struct {
			machine *c.Machine
			typ     *c.Type
			bits    int64
		}{
			{c.LP64, c.CharType, 8},
			{c.LP64, c.IntType, 32},
			{c.LP64, c.LongType, 64},
			{c.ILP32, c.LongType, 32},
			{c.LP64, c.NewPointer(c.IntType), 64},
			{c.ILP32, c.NewPointer(c.IntType), 32},
			{c.LP64, c.NewArray(c.IntType, 5), 160},
			{c.LP64, c.VoidType, 8},
		} {
			if bits, ok := tt.machine.SizeofBits(tt.typ); !ok {
				t.Fatalf("%s: size not available", tt.typ)
			} else if bits != tt.bits {
				t.Fatalf("%s on %s: got %d, expected %d", tt.typ, tt.machine.Name, bits, tt.bits)
			}
		}
	})

	t.Run("Struct", func(t *testing.T) {
		typ := c.NewStruct("S",
			&c.Field{Name: "x", Type: c.IntType},
			&c.Field{Name: "y", Type: c.CharType},
		)
		if bits, ok := c.LP64.SizeofBits(typ); !ok || bits != 64 {
			t.Fatalf("unexpected size: %d", bits)
		}
		if offset, f, ok := c.LP64.FieldOffset(typ, "y"); !ok {
			t.Fatal("expected field")
		} else if offset != 32 {
			t.Fatalf("unexpected offset: %d", offset)
		} else if f.Type != c.CharType {
			t.Fatalf("unexpected type: %s", f.Type)
		}
	})

	t.Run("Padding", func(t *testing.T) {
		typ := c.NewStruct("P",
			&c.Field{Name: "a", Type: c.CharType},
			&c.Field{Name: "b", Type: c.LongType},
			&c.Field{Name: "c", Type: c.ShortType},
		)
		if bits, ok := c.LP64.SizeofBits(typ); !ok || bits != 192 {
			t.Fatalf("unexpected size: %d", bits)
		} else if offset, _, _ := c.LP64.FieldOffset(typ, "b"); offset != 64 {
			t.Fatalf("unexpected offset: %d", offset)
		} else if offset, _, _ := c.LP64.FieldOffset(typ, "c"); offset != 128 {
			t.Fatalf("unexpected offset: %d", offset)
		}
	})

	t.Run("BitField", func(t *testing.T) {
		typ := c.NewStruct("B",
			&c.Field{Name: "a", Type: c.NewBitField(c.UIntType, 3)},
			&c.Field{Name: "b", Type: c.NewBitField(c.UIntType, 30)},
			&c.Field{Name: "c", Type: c.CharType},
		)
		if offset, f, _ := c.LP64.FieldOffset(typ, "b"); offset != 32 {
			t.Fatalf("unexpected offset: %d", offset)
		} else if bits, _ := c.LP64.SizeofBits(f.Type); bits != 30 {
			t.Fatalf("unexpected bit-field width: %d", bits)
		} else if offset, _, _ := c.LP64.FieldOffset(typ, "c"); offset != 64 {
			t.Fatalf("unexpected offset: %d", offset)
		}
	})

	t.Run("Union", func(t *testing.T) {
		typ := c.NewUnion("U",
			&c.Field{Name: "i", Type: c.IntType},
			&c.Field{Name: "d", Type: c.DoubleType},
		)
		if bits, ok := c.LP64.SizeofBits(typ); !ok || bits != 64 {
			t.Fatalf("unexpected size: %d", bits)
		} else if offset, _, _ := c.LP64.FieldOffset(typ, "d"); offset != 0 {
			t.Fatalf("unexpected offset: %d", offset)
		}
	})

	t.Run("VariableLength", func(t *testing.T) {
		n := &c.IdExpr{Name: "n", Decl: c.NewVariable("n", c.IntType, false)}
		typ := c.NewVariableArray(c.IntType, n)
		if !typ.IsVariableLength() {
			t.Fatal("expected variable length")
		} else if _, ok := c.LP64.SizeofBits(typ); ok {
			t.Fatal("expected no fixed size")
		}
	})
}

func TestMachine_Truncate(t *testing.T) {
	for _, tt := range []struct {
		v   int64
		typ *c.Type
		exp int64
	}{
		{300, c.UCharType, 44},
		{200, c.CharType, -56},
		{-1, c.UIntType, 0xFFFFFFFF},
		{0x1FFFFFFFF, c.IntType, -1},
		{5, c.BoolType, 1},
		{-1, c.LongType, -1},
	} {
		if got := c.LP64.Truncate(tt.v, tt.typ); got != tt.exp {
			t.Fatalf("Truncate(%d, %s)=%d, expected %d", tt.v, tt.typ, got, tt.exp)
		}
	}
}

func TestBinaryOp_Negate(t *testing.T) {
	if op := c.LessThan.Negate(); op != c.GreaterEqual {
		t.Fatalf("unexpected op: %s", op)
	} else if op := c.Equals.Negate(); op != c.NotEquals {
		t.Fatalf("unexpected op: %s", op)
	} else if op := c.LessEqual.Swap(); op != c.GreaterEqual {
		t.Fatalf("unexpected op: %s", op)
	}
}

func TestMachine_CommonType(t *testing.T) {
	for _, tt := range []struct {
		machine *c.Machine
		a, b    *c.Type
		want    *c.Type
	}{
		{c.LP64, c.CharType, c.ShortType, c.IntType},
		{c.LP64, c.IntType, c.UIntType, c.UIntType},
		{c.LP64, c.IntType, c.LongType, c.LongType},
		{c.LP64, c.UIntType, c.LongType, c.LongType},
		{c.ILP32, c.UIntType, c.LongType, c.ULongType},
		{c.LP64, c.ULongType, c.LongLongType, c.ULongLongType},
		{c.LP64, c.IntType, c.DoubleType, c.DoubleType},
	} {
		if got := tt.machine.CommonType(tt.a, tt.b); got.Kind != tt.want.Kind {
			t.Fatalf("%s, %s on %s: got %s, expected %s", tt.a, tt.b, tt.machine.Name, got, tt.want)
		}
	}
}

func TestMachine_SizeType(t *testing.T) {
	if typ := c.LP64.SizeType(); typ != c.ULongType {
		t.Fatalf("unexpected size_t: %s", typ)
	} else if typ := c.ILP32.SizeType(); typ != c.UIntType {
		t.Fatalf("unexpected size_t: %s", typ)
	} else if typ := c.ILP32.PtrdiffType(); typ != c.IntType {
		t.Fatalf("unexpected ptrdiff_t: %s", typ)
	}
}
