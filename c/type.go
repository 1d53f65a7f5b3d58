// Package c contains a typed representation of C expressions and declarations
// together with a machine model used to compute bit-level sizes and layouts.
package c

import (
	"bytes"
	"fmt"
)

// TypeKind represents the category of a C type.
type TypeKind int

// Type kinds.
const (
	Invalid = TypeKind(iota)
	Void
	Bool
	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong
	Float
	Double
	LongDouble
	Enum
	Pointer
	Array
	Struct
	Union
	Function
)

var typeKinds = [...]string{
	Invalid:    "invalid",
	Void:       "void",
	Bool:       "_Bool",
	Char:       "char",
	SChar:      "signed char",
	UChar:      "unsigned char",
	Short:      "short",
	UShort:     "unsigned short",
	Int:        "int",
	UInt:       "unsigned int",
	Long:       "long",
	ULong:      "unsigned long",
	LongLong:   "long long",
	ULongLong:  "unsigned long long",
	Float:      "float",
	Double:     "double",
	LongDouble: "long double",
	Enum:       "enum",
	Pointer:    "pointer",
	Array:      "array",
	Struct:     "struct",
	Union:      "union",
	Function:   "function",
}

// String returns the string representation of the kind.
func (k TypeKind) String() string {
	if k >= 0 && k < TypeKind(len(typeKinds)) {
		return typeKinds[k]
	}
	return fmt.Sprintf("TypeKind<%d>", k)
}

// Type represents a C type.
type Type struct {
	Kind TypeKind

	// Pointee for pointers, element for arrays, result for functions.
	Elem *Type

	// Array length. Nil for arrays of unknown length. A non-constant
	// expression marks a variable-length array.
	Len Expr

	// Tag of a struct, union or enum.
	Tag string

	// Members of a struct or union. Nil for incomplete aggregates.
	Fields []*Field

	// Function parameters.
	Params   []*Type
	Variadic bool

	// Width, in bits, of a bit-field member. Zero for ordinary types.
	BitField int
}

// Field represents a struct or union member.
type Field struct {
	Name string
	Type *Type
}

// Basic types.
var (
	VoidType       = &Type{Kind: Void}
	BoolType       = &Type{Kind: Bool}
	CharType       = &Type{Kind: Char}
	SCharType      = &Type{Kind: SChar}
	UCharType      = &Type{Kind: UChar}
	ShortType      = &Type{Kind: Short}
	UShortType     = &Type{Kind: UShort}
	IntType        = &Type{Kind: Int}
	UIntType       = &Type{Kind: UInt}
	LongType       = &Type{Kind: Long}
	ULongType      = &Type{Kind: ULong}
	LongLongType   = &Type{Kind: LongLong}
	ULongLongType  = &Type{Kind: ULongLong}
	FloatType      = &Type{Kind: Float}
	DoubleType     = &Type{Kind: Double}
	LongDoubleType = &Type{Kind: LongDouble}
)

// BasicType returns the shared instance for a basic kind.
func BasicType(kind TypeKind) *Type {
	switch kind {
	case Void:
		return VoidType
	case Bool:
		return BoolType
	case Char:
		return CharType
	case SChar:
		return SCharType
	case UChar:
		return UCharType
	case Short:
		return ShortType
	case UShort:
		return UShortType
	case Int:
		return IntType
	case UInt:
		return UIntType
	case Long:
		return LongType
	case ULong:
		return ULongType
	case LongLong:
		return LongLongType
	case ULongLong:
		return ULongLongType
	case Float:
		return FloatType
	case Double:
		return DoubleType
	case LongDouble:
		return LongDoubleType
	default:
		return nil
	}
}

// NewPointer returns a pointer to elem.
func NewPointer(elem *Type) *Type {
	return &Type{Kind: Pointer, Elem: elem}
}

// NewArray returns an array of n elements.
func NewArray(elem *Type, n int64) *Type {
	return &Type{Kind: Array, Elem: elem, Len: &IntLiteral{Value: n, T: ULongType}}
}

// NewVariableArray returns an array whose length is computed at runtime.
func NewVariableArray(elem *Type, length Expr) *Type {
	return &Type{Kind: Array, Elem: elem, Len: length}
}

// NewStruct returns a struct type with the given members.
func NewStruct(tag string, fields ...*Field) *Type {
	return &Type{Kind: Struct, Tag: tag, Fields: fields}
}

// NewUnion returns a union type with the given members.
func NewUnion(tag string, fields ...*Field) *Type {
	return &Type{Kind: Union, Tag: tag, Fields: fields}
}

// NewEnum returns an enum type.
func NewEnum(tag string) *Type {
	return &Type{Kind: Enum, Tag: tag}
}

// NewFunction returns a function type.
func NewFunction(result *Type, params []*Type, variadic bool) *Type {
	return &Type{Kind: Function, Elem: result, Params: params, Variadic: variadic}
}

// NewBitField returns a copy of base restricted to width bits.
func NewBitField(base *Type, width int) *Type {
	other := *base
	other.BitField = width
	return &other
}

// IsInteger returns true for integer and enum types.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case Bool, Char, SChar, UChar, Short, UShort, Int, UInt, Long, ULong, LongLong, ULongLong, Enum:
		return true
	default:
		return false
	}
}

// IsUnsigned returns true for unsigned integer types. Plain char is handled
// by the machine model.
func (t *Type) IsUnsigned() bool {
	switch t.Kind {
	case Bool, UChar, UShort, UInt, ULong, ULongLong:
		return true
	default:
		return false
	}
}

// IsFloat returns true for floating point types.
func (t *Type) IsFloat() bool {
	return t.Kind == Float || t.Kind == Double || t.Kind == LongDouble
}

// IsArithmetic returns true for integer and floating point types.
func (t *Type) IsArithmetic() bool { return t.IsInteger() || t.IsFloat() }

// IsPointer returns true if t is a pointer type.
func (t *Type) IsPointer() bool { return t.Kind == Pointer }

// IsArray returns true if t is an array type.
func (t *Type) IsArray() bool { return t.Kind == Array }

// IsFunction returns true if t is a function type.
func (t *Type) IsFunction() bool { return t.Kind == Function }

// IsAggregate returns true for struct and union types.
func (t *Type) IsAggregate() bool { return t.Kind == Struct || t.Kind == Union }

// IsAddress returns true if the value of an expression of type t is an
// address: pointers, arrays (which decay) and function designators.
func (t *Type) IsAddress() bool {
	return t.Kind == Pointer || t.Kind == Array || t.Kind == Function
}

// IsVariableLength returns true if t is, or contains, an array whose length
// is not an integer constant.
func (t *Type) IsVariableLength() bool {
	if t == nil || t.Kind != Array {
		return false
	}
	if t.Len != nil {
		if _, ok := ConstValue(t.Len); !ok {
			return true
		}
	}
	return t.Elem.IsVariableLength()
}

// ArrayLen returns the constant length of an array type.
func (t *Type) ArrayLen() (int64, bool) {
	if t.Kind != Array || t.Len == nil {
		return 0, false
	}
	return ConstValue(t.Len)
}

// Pointee returns the target of a pointer or the element of an array.
func (t *Type) Pointee() *Type {
	if t.Kind == Pointer || t.Kind == Array {
		return t.Elem
	}
	return nil
}

// Field returns the member with the given name.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Contains returns true if other is t or is nested in t's element chain.
func (t *Type) Contains(other *Type) bool {
	for typ := t; typ != nil; typ = typ.Elem {
		if typ == other {
			return true
		}
		if typ.Kind != Array && typ.Kind != Pointer {
			break
		}
	}
	return false
}

// String returns a C-like representation of the type.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}

	var buf bytes.Buffer
	switch t.Kind {
	case Pointer:
		fmt.Fprintf(&buf, "%s*", t.Elem)
	case Array:
		if t.Len == nil {
			fmt.Fprintf(&buf, "%s[]", t.Elem)
		} else {
			fmt.Fprintf(&buf, "%s[%s]", t.Elem, t.Len)
		}
	case Struct, Union, Enum:
		fmt.Fprintf(&buf, "%s %s", t.Kind, t.Tag)
	case Function:
		fmt.Fprintf(&buf, "%s(", t.Elem)
		for i, p := range t.Params {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(p.String())
		}
		if t.Variadic {
			buf.WriteString(", ...")
		}
		buf.WriteString(")")
	default:
		buf.WriteString(t.Kind.String())
	}
	if t.BitField > 0 {
		fmt.Fprintf(&buf, ":%d", t.BitField)
	}
	return buf.String()
}
