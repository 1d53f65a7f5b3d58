package smg

import (
	"fmt"
	"strconv"
)

// Value represents the result of evaluating a scalar expression.
type Value interface {
	value()
	String() string
}

func (UnknownValue) value()  {}
func (ZeroValue) value()     {}
func (SymbolicValue) value() {}
func (ExplicitValue) value() {}
func (AddressValue) value()  {}

// UnknownValue is returned when evaluation cannot determine a result.
// It is not an error.
type UnknownValue struct{}

func (UnknownValue) String() string { return "unknown" }

// ZeroValue is the value zero. It doubles as the null pointer and false.
type ZeroValue struct{}

func (ZeroValue) String() string { return "zero" }

// SymbolicValue is an opaque handle for an abstract value. Two ids are only
// known to be equal in meaning if they are identical or if the state binds
// them to the same explicit value.
type SymbolicValue struct {
	ID int64
}

func (v SymbolicValue) String() string {
	if v.ID == trueID {
		return "#true"
	}
	return "#" + strconv.FormatInt(v.ID, 10)
}

// ExplicitValue is a concrete machine integer.
type ExplicitValue struct {
	Value int64
}

func (v ExplicitValue) String() string { return strconv.FormatInt(v.Value, 10) }

// AddressValue is a pointer value. Its identity, used for equality
// bookkeeping, is Value; its meaning is the Address it designates.
type AddressValue struct {
	Value   Value
	Address Address
}

func (v AddressValue) String() string {
	return fmt.Sprintf("%s->%s", v.Value, v.Address)
}

// IsUnknown returns true if the identity of the pointer is unknown.
func (v AddressValue) IsUnknown() bool { return IsUnknown(v.Value) }

// Shared values.
var (
	Unknown Value = UnknownValue{}
	Zero    Value = ZeroValue{}

	// True is returned by the assumption evaluator for a condition that
	// holds. The state binds it to the explicit value 1.
	True = SymbolicValue{ID: trueID}

	// UnknownAddressValue is a pointer whose identity and target are unknown.
	UnknownAddressValue = AddressValue{Value: Unknown, Address: UnknownAddress}
)

// IsUnknown returns true if v is unknown.
func IsUnknown(v Value) bool {
	switch v := v.(type) {
	case nil, UnknownValue:
		return true
	case AddressValue:
		return v.IsUnknown()
	default:
		return false
	}
}

// IsZero returns true if v is zero or the null pointer.
func IsZero(v Value) bool {
	switch v := v.(type) {
	case ZeroValue:
		return true
	case ExplicitValue:
		return v.Value == 0
	case AddressValue:
		return IsZero(v.Value)
	default:
		return false
	}
}

// Identity strips the address from an address value.
func Identity(v Value) Value {
	if av, ok := v.(AddressValue); ok {
		return av.Value
	}
	return v
}

// Explicit is a concrete integer that may be unknown.
type Explicit struct {
	Value int64
	Known bool
}

// UnknownExplicit is an explicit value that could not be determined.
var UnknownExplicit = Explicit{}

// KnownExplicit returns a known explicit value.
func KnownExplicit(v int64) Explicit { return Explicit{Value: v, Known: true} }

// IsUnknown returns true if the value could not be determined.
func (e Explicit) IsUnknown() bool { return !e.Known }

// Add returns e + other. Unknown is absorbing.
func (e Explicit) Add(other Explicit) Explicit {
	if !e.Known || !other.Known {
		return UnknownExplicit
	}
	return KnownExplicit(e.Value + other.Value)
}

// Sub returns e - other. Unknown is absorbing.
func (e Explicit) Sub(other Explicit) Explicit {
	if !e.Known || !other.Known {
		return UnknownExplicit
	}
	return KnownExplicit(e.Value - other.Value)
}

// Mul returns e * other. Unknown is absorbing.
func (e Explicit) Mul(other Explicit) Explicit {
	if !e.Known || !other.Known {
		return UnknownExplicit
	}
	return KnownExplicit(e.Value * other.Value)
}

func (e Explicit) String() string {
	if !e.Known {
		return "unknown"
	}
	return strconv.FormatInt(e.Value, 10)
}

// Address is a location: an object and a bit offset within it.
type Address struct {
	Object *Object
	Offset Explicit
}

// UnknownAddress is an address that could not be resolved.
var UnknownAddress = Address{}

// NewAddress returns the address at offsetBits within obj.
func NewAddress(obj *Object, offsetBits int64) Address {
	return Address{Object: obj, Offset: KnownExplicit(offsetBits)}
}

// IsUnknown returns true if either the object or the offset is unresolved.
func (a Address) IsUnknown() bool { return a.Object == nil || !a.Offset.Known }

// Add returns the address moved by offset bits.
func (a Address) Add(offset Explicit) Address {
	if a.Object == nil {
		return UnknownAddress
	}
	return Address{Object: a.Object, Offset: a.Offset.Add(offset)}
}

// Equal returns true if a and other designate the same location.
func (a Address) Equal(other Address) bool {
	if a.IsUnknown() || other.IsUnknown() {
		return false
	}
	return a.Object.ID == other.Object.ID && a.Offset.Value == other.Offset.Value
}

func (a Address) String() string {
	if a.Object == nil {
		return "(unknown)"
	}
	return fmt.Sprintf("(%s, %s)", a.Object.Label, a.Offset)
}

// Result is one alternative of an evaluation: a value together with the
// state in which it holds.
type Result[T any] struct {
	Value T
	State *HeapState
}

// Result instantiations.
type (
	ValueResult        = Result[Value]
	AddressResult      = Result[Address]
	AddressValueResult = Result[AddressValue]
	ExplicitResult     = Result[Explicit]
)

// single returns a list containing one result.
func single[T any](v T, state *HeapState) []Result[T] {
	return []Result[T]{{Value: v, State: state}}
}
