package c

import (
	"fmt"
)

// Machine describes the data model of the analyzed program's target.
// All sizes are in bits.
type Machine struct {
	Name        string
	PointerBits int64
	CharSigned  bool

	sizes  map[TypeKind]int64
	aligns map[TypeKind]int64
}

// LP64 is the data model of 64-bit Linux.
var LP64 = &Machine{
	Name:        "lp64",
	PointerBits: 64,
	CharSigned:  true,
	sizes: map[TypeKind]int64{
		Void: 8, Bool: 8, Char: 8, SChar: 8, UChar: 8,
		Short: 16, UShort: 16, Int: 32, UInt: 32, Enum: 32,
		Long: 64, ULong: 64, LongLong: 64, ULongLong: 64,
		Float: 32, Double: 64, LongDouble: 128, Pointer: 64,
	},
	aligns: map[TypeKind]int64{
		Void: 8, Bool: 8, Char: 8, SChar: 8, UChar: 8,
		Short: 16, UShort: 16, Int: 32, UInt: 32, Enum: 32,
		Long: 64, ULong: 64, LongLong: 64, ULongLong: 64,
		Float: 32, Double: 64, LongDouble: 128, Pointer: 64,
	},
}

// ILP32 is the data model of 32-bit Linux.
var ILP32 = &Machine{
	Name:        "ilp32",
	PointerBits: 32,
	CharSigned:  true,
	sizes: map[TypeKind]int64{
		Void: 8, Bool: 8, Char: 8, SChar: 8, UChar: 8,
		Short: 16, UShort: 16, Int: 32, UInt: 32, Enum: 32,
		Long: 32, ULong: 32, LongLong: 64, ULongLong: 64,
		Float: 32, Double: 64, LongDouble: 96, Pointer: 32,
	},
	aligns: map[TypeKind]int64{
		Void: 8, Bool: 8, Char: 8, SChar: 8, UChar: 8,
		Short: 16, UShort: 16, Int: 32, UInt: 32, Enum: 32,
		Long: 32, ULong: 32, LongLong: 32, ULongLong: 32,
		Float: 32, Double: 32, LongDouble: 32, Pointer: 32,
	},
}

// LookupMachine returns a machine model by name.
func LookupMachine(name string) (*Machine, error) {
	switch name {
	case "", "lp64", "linux64":
		return LP64, nil
	case "ilp32", "linux32":
		return ILP32, nil
	default:
		return nil, fmt.Errorf("c: unknown machine model %q", name)
	}
}

// SizeofBits returns the size of a fixed-size type. Returns false for
// variable-length arrays, arrays of unknown length, incomplete aggregates
// and function types.
func (m *Machine) SizeofBits(t *Type) (int64, bool) {
	if t.BitField > 0 {
		return int64(t.BitField), true
	}

	switch t.Kind {
	case Array:
		n, ok := t.ArrayLen()
		if !ok {
			return 0, false
		}
		elem, ok := m.SizeofBits(t.Elem)
		if !ok {
			return 0, false
		}
		return n * elem, true
	case Struct, Union:
		if t.Fields == nil {
			return 0, false
		}
		l, ok := m.layout(t)
		if !ok {
			return 0, false
		}
		return l.size, true
	case Function, Invalid:
		return 0, false
	default:
		size, ok := m.sizes[t.Kind]
		return size, ok
	}
}

// AlignofBits returns the alignment of a type.
func (m *Machine) AlignofBits(t *Type) int64 {
	switch t.Kind {
	case Array:
		return m.AlignofBits(t.Elem)
	case Struct, Union:
		if l, ok := m.layout(t); ok {
			return l.align
		}
		return 8
	default:
		if align, ok := m.aligns[t.Kind]; ok {
			return align
		}
		return 8
	}
}

// FieldOffset returns the bit offset and member of a struct or union field.
func (m *Machine) FieldOffset(t *Type, name string) (int64, *Field, bool) {
	if !t.IsAggregate() {
		return 0, nil, false
	}
	l, ok := m.layout(t)
	if !ok {
		return 0, nil, false
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return l.offsets[i], f, true
		}
	}
	return 0, nil, false
}

// SizeType returns the type of sizeof expressions.
func (m *Machine) SizeType() *Type {
	if m.sizes[Int] == m.PointerBits {
		return UIntType
	}
	return ULongType
}

// PtrdiffType returns the type of the difference of two pointers.
func (m *Machine) PtrdiffType() *Type {
	if m.sizes[Int] == m.PointerBits {
		return IntType
	}
	return LongType
}

// IsSigned returns true if values of t are interpreted as signed integers.
func (m *Machine) IsSigned(t *Type) bool {
	switch t.Kind {
	case Char:
		return m.CharSigned
	case Enum:
		return true
	default:
		return t.IsInteger() && !t.IsUnsigned()
	}
}

// Truncate converts v to the representation of type t.
func (m *Machine) Truncate(v int64, t *Type) int64 {
	if t.Kind == Bool && t.BitField == 0 {
		if v != 0 {
			return 1
		}
		return 0
	}
	if !t.IsInteger() && t.Kind != Pointer {
		return v
	}

	bits, ok := m.SizeofBits(t)
	if !ok || bits >= 64 {
		return v
	}
	mask := int64(1)<<uint(bits) - 1
	v &= mask
	if m.IsSigned(t) && v&(int64(1)<<uint(bits-1)) != 0 {
		v |= ^mask
	}
	return v
}

type layout struct {
	offsets []int64
	size    int64
	align   int64
}

// layout computes member offsets following the System V rules: members are
// placed at their natural alignment and bit-fields are packed into storage
// units of their declared type without straddling a unit boundary.
func (m *Machine) layout(t *Type) (layout, bool) {
	l := layout{offsets: make([]int64, len(t.Fields)), align: 8}

	var offset int64
	for i, f := range t.Fields {
		if f.Type.BitField > 0 {
			base := *f.Type
			base.BitField = 0
			unit, ok := m.SizeofBits(&base)
			if !ok {
				return l, false
			}
			width := int64(f.Type.BitField)
			if t.Kind == Struct && offset%unit+width > unit {
				offset = alignTo(offset, unit)
			}
			if t.Kind == Struct {
				l.offsets[i] = offset
				offset += width
			}
			if a := m.AlignofBits(&base); a > l.align {
				l.align = a
			}
			if t.Kind == Union && unit > l.size {
				l.size = unit
			}
			continue
		}

		align := m.AlignofBits(f.Type)
		if align > l.align {
			l.align = align
		}

		size, ok := m.SizeofBits(f.Type)
		if !ok {
			// A flexible array member is only allowed last in a struct.
			if f.Type.Kind == Array && f.Type.Len == nil && i == len(t.Fields)-1 {
				size = 0
			} else {
				return l, false
			}
		}

		if t.Kind == Union {
			if size > l.size {
				l.size = size
			}
			continue
		}

		offset = alignTo(offset, align)
		l.offsets[i] = offset
		offset += size
	}

	if t.Kind == Struct {
		l.size = offset
	}
	l.size = alignTo(l.size, l.align)
	return l, true
}

// alignTo rounds n up to the nearest multiple of align.
func alignTo(n, align int64) int64 {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// rank orders the integer kinds by conversion rank.
var rank = map[TypeKind]int{
	Bool: 1, Char: 2, SChar: 2, UChar: 2, Short: 3, UShort: 3,
	Int: 4, UInt: 4, Enum: 4, Long: 5, ULong: 5, LongLong: 6, ULongLong: 6,
}

// unsignedOf maps a signed integer kind to its unsigned counterpart.
var unsignedOf = map[TypeKind]*Type{
	Char: UCharType, SChar: UCharType, Short: UShortType, Int: UIntType,
	Enum: UIntType, Long: ULongType, LongLong: ULongLongType,
}

// Promote applies the integer promotions to t.
func (m *Machine) Promote(t *Type) *Type {
	if !t.IsInteger() {
		return t
	}
	if t.BitField > 0 {
		base := BasicType(t.Kind)
		if base == nil || int64(t.BitField) < m.sizes[Int] || (int64(t.BitField) == m.sizes[Int] && m.IsSigned(base)) {
			return IntType
		}
		return base
	}
	if rank[t.Kind] < rank[Int] {
		return IntType
	}
	if t.Kind == Enum {
		return IntType
	}
	return t
}

// CommonType returns the type both operands of an arithmetic or relational
// operator are converted to. Pointer operands yield the pointer type.
func (m *Machine) CommonType(a, b *Type) *Type {
	switch {
	case a.IsAddress():
		return a
	case b.IsAddress():
		return b
	case a.IsFloat() || b.IsFloat():
		if a.Kind == LongDouble || b.Kind == LongDouble {
			return LongDoubleType
		} else if a.Kind == Double || b.Kind == Double {
			return DoubleType
		}
		return FloatType
	case !a.IsInteger() || !b.IsInteger():
		return IntType
	}

	a, b = m.Promote(a), m.Promote(b)
	if a.Kind == b.Kind {
		return a
	}

	as, bs := m.IsSigned(a), m.IsSigned(b)
	if as == bs {
		if rank[a.Kind] >= rank[b.Kind] {
			return a
		}
		return b
	}

	signed, unsigned := a, b
	if !as {
		signed, unsigned = b, a
	}
	if rank[unsigned.Kind] >= rank[signed.Kind] {
		return unsigned
	} else if m.sizes[signed.Kind] > m.sizes[unsigned.Kind] {
		return signed
	}
	return unsignedOf[signed.Kind]
}
