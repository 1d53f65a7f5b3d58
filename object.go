package smg

import (
	"fmt"
)

// ObjectKind represents the region of memory an object lives in.
type ObjectKind int

// Object kinds.
const (
	NullObject = ObjectKind(iota)
	GlobalObject
	StackObject
	HeapObject
	ExternalObject
	FunctionObject

	// ListSegment is an abstract object standing for a chain of at least
	// MinLength list nodes of SizeBits each.
	ListSegment
)

var objectKinds = [...]string{
	NullObject:     "null",
	GlobalObject:   "global",
	StackObject:    "stack",
	HeapObject:     "heap",
	ExternalObject: "external",
	FunctionObject: "function",
	ListSegment:    "segment",
}

// String returns the string representation of the kind.
func (k ObjectKind) String() string {
	if k >= 0 && k < ObjectKind(len(objectKinds)) {
		return objectKinds[k]
	}
	return fmt.Sprintf("ObjectKind<%d>", k)
}

// Object represents a region of memory in the graph. Objects are immutable;
// their contents are stored as has-value edges on the HeapState.
type Object struct {
	ID       int64  // unique id within a state lineage
	Kind     ObjectKind
	Label    string // variable name or allocation site
	SizeBits int64

	// List segment shape. NextOffset is the bit offset of the pointer to the
	// successor within each node.
	MinLength  int
	NextOffset int64
}

// Null is the target of the null pointer. It has no valid bytes.
var Null = &Object{ID: zeroID, Kind: NullObject, Label: "NULL"}

// String returns a string representation of the object.
func (o *Object) String() string {
	if o == nil {
		return "(object unknown)"
	} else if o.Kind == ListSegment {
		return fmt.Sprintf("(segment #%d %s %d+ x %d)", o.ID, o.Label, o.MinLength, o.SizeBits)
	}
	return fmt.Sprintf("(%s #%d %s %d)", o.Kind, o.ID, o.Label, o.SizeBits)
}

// IsAbstract returns true if the object stands for more than one region.
func (o *Object) IsAbstract() bool { return o.Kind == ListSegment }

// CompareObject returns an integer comparing two objects.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareObject(a, b *Object) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if a.ID < b.ID {
		return -1
	} else if a.ID > b.ID {
		return 1
	}

	if a.SizeBits < b.SizeBits {
		return -1
	} else if a.SizeBits > b.SizeBits {
		return 1
	}
	return 0
}

// HasValueEdge represents the value stored at a bit range of an object.
type HasValueEdge struct {
	Object   int64
	Offset   int64 // bits
	SizeBits int64
	Value    Value // ZeroValue or SymbolicValue
}

// End returns the offset just past the edge.
func (e HasValueEdge) End() int64 { return e.Offset + e.SizeBits }

// Overlaps returns true if the edge shares at least one bit with the range.
func (e HasValueEdge) Overlaps(offset, sizeBits int64) bool {
	return e.Offset < offset+sizeBits && offset < e.End()
}

// Covers returns true if the range lies entirely inside the edge.
func (e HasValueEdge) Covers(offset, sizeBits int64) bool {
	return e.Offset <= offset && offset+sizeBits <= e.End()
}

// String returns a string representation of the edge.
func (e HasValueEdge) String() string {
	return fmt.Sprintf("[%d:%d] = %s", e.Offset, e.End(), e.Value)
}

// edgeKey is the sort key of a has-value edge: object, then offset, then size.
type edgeKey struct {
	object   int64
	offset   int64
	sizeBits int64
}

// CompareHasValueEdge returns an integer comparing the positions of two edges.
func CompareHasValueEdge(a, b HasValueEdge) int {
	return compareEdgeKey(edgeKey{a.Object, a.Offset, a.SizeBits}, edgeKey{b.Object, b.Offset, b.SizeBits})
}

func compareEdgeKey(a, b edgeKey) int {
	if cmp := compareInt64(a.object, b.object); cmp != 0 {
		return cmp
	} else if cmp := compareInt64(a.offset, b.offset); cmp != 0 {
		return cmp
	}
	return compareInt64(a.sizeBits, b.sizeBits)
}

// addressKey identifies a concrete target of a points-to edge.
type addressKey struct {
	object int64
	offset int64
}

func compareAddressKey(a, b addressKey) int {
	if cmp := compareInt64(a.object, b.object); cmp != 0 {
		return cmp
	}
	return compareInt64(a.offset, b.offset)
}

func compareInt64(a, b int64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
