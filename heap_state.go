package smg

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/benbjohnson/smg/c"
	"golang.org/x/tools/container/intsets"
)

// HeapState represents one symbolic memory graph.
//
// A HeapState is never modified after it is returned to a caller. Every
// operation that changes the graph returns a new state which shares
// unchanged structure with its parent, so that states forked during
// evaluation can be explored independently.
type HeapState struct {
	machine *c.Machine

	// Next fresh id. Kept per state so that evaluating the same expression
	// twice against the same state produces the same ids.
	nextID int64

	// Stack accounting for local variable materialization.
	stackBits      int64
	stackLimitBits int64

	objects   *immutable.SortedMap // id -> *Object
	variables *immutable.SortedMap // name -> *Object
	functions *immutable.SortedMap // name -> *Object
	edges     *immutable.SortedMap // edgeKey -> HasValueEdge
	pointsTo  *immutable.SortedMap // value id -> Address
	targets   *immutable.SortedMap // addressKey -> value id
	explicits *immutable.SortedMap // value id -> int64
	literals  *immutable.SortedMap // int64 -> value id
	nonEqual  *immutable.SortedMap // valuePair -> struct{}

	predicates []PredicateRelation

	invalid *intsets.Sparse // ids of freed or out-of-scope objects
	faults  *intsets.Sparse // ids of objects involved in a fault

	invalidRead        bool
	invalidWrite       bool
	invalidFree        bool
	unknownDereference bool
	reasons            []string
}

// NewHeapState returns an empty graph for the given machine model. The graph
// contains only the null object.
func NewHeapState(machine *c.Machine) *HeapState {
	s := &HeapState{
		machine:   machine,
		nextID:    firstFreshID,
		objects:   immutable.NewSortedMap(&int64Comparer{}),
		variables: immutable.NewSortedMap(&stringComparer{}),
		functions: immutable.NewSortedMap(&stringComparer{}),
		edges:     immutable.NewSortedMap(&edgeKeyComparer{}),
		pointsTo:  immutable.NewSortedMap(&int64Comparer{}),
		targets:   immutable.NewSortedMap(&addressKeyComparer{}),
		explicits: immutable.NewSortedMap(&int64Comparer{}),
		literals:  immutable.NewSortedMap(&int64Comparer{}),
		nonEqual:  immutable.NewSortedMap(&valuePairComparer{}),
		invalid:   &intsets.Sparse{},
		faults:    &intsets.Sparse{},
	}
	s.objects = s.objects.Set(Null.ID, Null)
	s.explicits = s.explicits.Set(int64(trueID), int64(1))
	return s
}

// Machine returns the machine model of the analyzed program.
func (s *HeapState) Machine() *c.Machine { return s.machine }

// WithStackLimit returns a copy of the state that refuses local variables
// once the stack holds more than limitBits. Zero means unlimited.
func (s *HeapState) WithStackLimit(limitBits int64) *HeapState {
	other := s.clone()
	other.stackLimitBits = limitBits
	return other
}

// clone returns a shallow copy of the state. Maps are persistent so they are
// shared; sets and slices are copied before they are modified.
func (s *HeapState) clone() *HeapState {
	other := *s
	return &other
}

// Object returns the object with the given id.
func (s *HeapState) Object(id int64) *Object {
	if v, ok := s.objects.Get(id); ok {
		return v.(*Object)
	}
	return nil
}

// Objects returns all objects ordered by id, including the null object.
func (s *HeapState) Objects() []*Object {
	a := make([]*Object, 0, s.objects.Len())
	itr := s.objects.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		a = append(a, v.(*Object))
	}
	return a
}

// ObjectForVariable returns the storage of a variable or nil if the variable
// has not been materialized yet.
func (s *HeapState) ObjectForVariable(name string) *Object {
	if v, ok := s.variables.Get(name); ok {
		return v.(*Object)
	}
	return nil
}

// ObjectForFunction returns the object representing a function's address.
func (s *HeapState) ObjectForFunction(name string) *Object {
	if v, ok := s.functions.Get(name); ok {
		return v.(*Object)
	}
	return nil
}

// AddGlobalVariable returns a new state with zero-initialized storage for a
// global variable.
func (s *HeapState) AddGlobalVariable(sizeBits int64, name string) (*Object, *HeapState) {
	other := s.clone()
	obj := other.addObject(GlobalObject, sizeBits, name)
	if sizeBits > 0 {
		other.setEdge(HasValueEdge{Object: obj.ID, Offset: 0, SizeBits: sizeBits, Value: Zero})
	}
	other.variables = other.variables.Set(name, obj)
	return obj, other
}

// AddLocalVariable returns a new state with uninitialized storage for a local
// variable. Returns false if the stack limit would be exceeded.
func (s *HeapState) AddLocalVariable(sizeBits int64, name string) (*Object, *HeapState, bool) {
	if s.stackLimitBits > 0 && s.stackBits+sizeBits > s.stackLimitBits {
		return nil, s, false
	}
	other := s.clone()
	obj := other.addObject(StackObject, sizeBits, name)
	other.stackBits += sizeBits
	other.variables = other.variables.Set(name, obj)
	return obj, other, true
}

// AddFunction returns a new state with an object standing for a function's
// address. Function objects have no readable bytes.
func (s *HeapState) AddFunction(name string) (*Object, *HeapState) {
	other := s.clone()
	obj := other.addObject(FunctionObject, 0, name)
	other.functions = other.functions.Set(name, obj)
	return obj, other
}

// AddHeapObject returns a new state with an uninitialized heap allocation.
func (s *HeapState) AddHeapObject(sizeBits int64, label string) (*Object, *HeapState) {
	other := s.clone()
	return other.addObject(HeapObject, sizeBits, label), other
}

// AddZeroedHeapObject returns a new state with a zero-initialized heap allocation.
func (s *HeapState) AddZeroedHeapObject(sizeBits int64, label string) (*Object, *HeapState) {
	other := s.clone()
	obj := other.addObject(HeapObject, sizeBits, label)
	if sizeBits > 0 {
		other.setEdge(HasValueEdge{Object: obj.ID, SizeBits: sizeBits, Value: Zero})
	}
	return obj, other
}

// AddStackObject returns a new state with an anonymous stack allocation.
func (s *HeapState) AddStackObject(sizeBits int64, label string) (*Object, *HeapState) {
	other := s.clone()
	other.stackBits += sizeBits
	return other.addObject(StackObject, sizeBits, label), other
}

// AddExternalObject returns a new state with memory allocated by code outside
// the analyzed program.
func (s *HeapState) AddExternalObject(sizeBits int64, label string) (*Object, *HeapState) {
	other := s.clone()
	return other.addObject(ExternalObject, sizeBits, label), other
}

// AddListSegment returns a new state with an abstract list segment of at
// least minLength nodes. The successor pointer of the last node is stored at
// nextOffset of the segment.
func (s *HeapState) AddListSegment(nodeBits, nextOffset int64, minLength int, label string) (*Object, *HeapState) {
	assert(nextOffset >= 0 && nextOffset+s.machine.PointerBits <= nodeBits, "list segment: next offset out of node: %d", nextOffset)
	other := s.clone()
	obj := other.addObject(ListSegment, nodeBits, label)
	obj.MinLength, obj.NextOffset = minLength, nextOffset
	return obj, other
}

func (s *HeapState) addObject(kind ObjectKind, sizeBits int64, label string) *Object {
	obj := &Object{ID: s.newID(), Kind: kind, Label: label, SizeBits: sizeBits}
	s.objects = s.objects.Set(obj.ID, obj)
	return obj
}

// removeObject deletes an object, its contents and pointers to it.
func (s *HeapState) removeObject(obj *Object) {
	for _, e := range s.Edges(obj) {
		s.edges = s.edges.Delete(edgeKey{e.Object, e.Offset, e.SizeBits})
	}
	itr := s.targets.Iterator()
	itr.Seek(addressKey{obj.ID, math.MinInt64})
	var keys []addressKey
	for !itr.Done() {
		k, v := itr.Next()
		if key := k.(addressKey); key.object != obj.ID {
			break
		} else {
			keys = append(keys, key)
			s.pointsTo = s.pointsTo.Delete(v.(int64))
		}
	}
	for _, key := range keys {
		s.targets = s.targets.Delete(key)
	}
	s.objects = s.objects.Delete(obj.ID)
}

// Free returns a new state in which obj is invalid and its contents dropped.
func (s *HeapState) Free(obj *Object) *HeapState {
	other := s.clone()
	other.invalidate(obj)
	return other
}

func (s *HeapState) invalidate(obj *Object) {
	invalid := &intsets.Sparse{}
	invalid.Copy(s.invalid)
	invalid.Insert(int(obj.ID))
	s.invalid = invalid

	for _, e := range s.Edges(obj) {
		s.edges = s.edges.Delete(edgeKey{e.Object, e.Offset, e.SizeBits})
	}
}

// IsObjectValid returns true if obj may be accessed. The null object and
// freed objects are invalid.
func (s *HeapState) IsObjectValid(obj *Object) bool {
	if obj == nil || obj.Kind == NullObject || s.invalid.Has(int(obj.ID)) {
		return false
	}
	_, ok := s.objects.Get(obj.ID)
	return ok
}

// ObjectSizeBits returns the size of an object.
func (s *HeapState) ObjectSizeBits(obj *Object) int64 { return obj.SizeBits }

// newID returns the next fresh id. Must only be called on a cloned state.
func (s *HeapState) newID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// NewSymbolic returns a fresh symbolic value.
func (s *HeapState) NewSymbolic() (SymbolicValue, *HeapState) {
	other := s.clone()
	return SymbolicValue{ID: other.newID()}, other
}

// GetExplicit returns the concrete value bound to v, if any.
func (s *HeapState) GetExplicit(v Value) (int64, bool) {
	switch v := v.(type) {
	case ZeroValue:
		return 0, true
	case ExplicitValue:
		return v.Value, true
	case SymbolicValue:
		if k, ok := s.explicits.Get(v.ID); ok {
			return k.(int64), true
		}
	case AddressValue:
		return s.GetExplicit(v.Value)
	}
	return 0, false
}

// PutExplicit returns a new state in which the symbolic value id is bound to k.
func (s *HeapState) PutExplicit(id int64, k int64) *HeapState {
	assert(id != zeroID, "put explicit: cannot bind zero")
	other := s.clone()
	other.putExplicit(id, k)
	return other
}

func (s *HeapState) putExplicit(id int64, k int64) {
	s.explicits = s.explicits.Set(id, k)
	if _, ok := s.literals.Get(k); !ok && id != trueID {
		s.literals = s.literals.Set(k, id)
	}
}

// InternExplicit returns the value standing for the constant k. Zero maps to
// Zero. Other constants reuse the id already bound to k, if any.
func (s *HeapState) InternExplicit(k int64) (Value, *HeapState) {
	if k == 0 {
		return Zero, s
	} else if id, ok := s.literals.Get(k); ok {
		return SymbolicValue{ID: id.(int64)}, s
	}
	other := s.clone()
	id := other.newID()
	other.putExplicit(id, k)
	return SymbolicValue{ID: id}, other
}

// AreEqual returns true if a and b are known to hold the same value.
func (s *HeapState) AreEqual(a, b Value) bool {
	if ida, ok := valueID(a); ok {
		if idb, ok := valueID(b); ok && ida == idb {
			return true
		}
	}
	if x, ok := s.GetExplicit(a); ok {
		if y, ok := s.GetExplicit(b); ok {
			return x == y
		}
	}
	if x, ok := s.PointsTo(a); ok {
		if y, ok := s.PointsTo(b); ok {
			return x.Equal(y)
		}
	}
	return false
}

// AreNonEqual returns true if a and b are known to hold different values.
func (s *HeapState) AreNonEqual(a, b Value) bool {
	if x, ok := s.GetExplicit(a); ok {
		if y, ok := s.GetExplicit(b); ok {
			return x != y
		}
	}
	ida, ok := valueID(a)
	if !ok {
		return false
	}
	idb, ok := valueID(b)
	if !ok || ida == idb {
		return false
	}
	_, ok = s.nonEqual.Get(newValuePair(ida, idb))
	return ok
}

// AddNonEquality returns a new state recording that a and b differ.
func (s *HeapState) AddNonEquality(a, b Value) *HeapState {
	ida, ok := valueID(a)
	if !ok {
		return s
	}
	idb, ok := valueID(b)
	if !ok || ida == idb {
		return s
	}
	other := s.clone()
	other.nonEqual = other.nonEqual.Set(newValuePair(ida, idb), struct{}{})
	return other
}

// PredicateRelation is a relation between two values that held on the path
// leading to a state.
type PredicateRelation struct {
	Left      Value
	LeftType  *c.Type
	Right     Value
	RightType *c.Type
	Op        c.BinaryOp
}

// String returns a string representation of the relation.
func (r PredicateRelation) String() string {
	return fmt.Sprintf("%s %s %s", r.Left, r.Op, r.Right)
}

// AddPredicateRelation returns a new state recording that v1 op v2 holds.
func (s *HeapState) AddPredicateRelation(v1 Value, t1 *c.Type, v2 Value, t2 *c.Type, op c.BinaryOp) *HeapState {
	assert(op.IsRelational(), "predicate relation: invalid operator: %s", op)
	other := s.clone()
	other.predicates = append(s.predicates[:len(s.predicates):len(s.predicates)], PredicateRelation{
		Left: v1, LeftType: t1, Right: v2, RightType: t2, Op: op,
	})
	return other
}

// PredicateRelations returns the relations recorded so far.
func (s *HeapState) PredicateRelations() []PredicateRelation { return s.predicates }

// Edges returns the has-value edges of obj ordered by offset.
func (s *HeapState) Edges(obj *Object) []HasValueEdge {
	var a []HasValueEdge
	itr := s.edges.Iterator()
	itr.Seek(edgeKey{obj.ID, math.MinInt64, 0})
	for !itr.Done() {
		_, v := itr.Next()
		e := v.(HasValueEdge)
		if e.Object != obj.ID {
			break
		}
		a = append(a, e)
	}
	return a
}

// overlapping returns the edges of obj sharing a bit with the given range.
func (s *HeapState) overlapping(obj *Object, offset, sizeBits int64) []HasValueEdge {
	var a []HasValueEdge
	for _, e := range s.Edges(obj) {
		if e.Offset >= offset+sizeBits {
			break
		} else if e.Overlaps(offset, sizeBits) {
			a = append(a, e)
		}
	}
	return a
}

func (s *HeapState) setEdge(e HasValueEdge) {
	s.edges = s.edges.Set(edgeKey{e.Object, e.Offset, e.SizeBits}, e)
}

// ReadBits returns the value stored at a bit range of obj. The range is not
// checked against the bounds of the object.
//
// A read matching a stored edge returns its value. A read inside
// zero-initialized memory returns Zero. A read of memory that was never
// written returns a fresh symbolic value which is stored so that the next
// read agrees. Any other partial overlap cannot be decided and is unknown.
func (s *HeapState) ReadBits(obj *Object, offset, sizeBits int64) (Value, *HeapState) {
	var zeroes []HasValueEdge
	var overlap bool
	for _, e := range s.overlapping(obj, offset, sizeBits) {
		if e.Offset == offset && e.SizeBits == sizeBits {
			return e.Value, s
		} else if _, ok := e.Value.(ZeroValue); ok {
			zeroes = append(zeroes, e)
		} else {
			overlap = true
		}
	}

	if overlap {
		return Unknown, s
	} else if len(zeroes) > 0 {
		if isCovered(zeroes, offset, sizeBits) {
			return Zero, s
		}
		return Unknown, s
	}

	other := s.clone()
	v := SymbolicValue{ID: other.newID()}
	other.setEdge(HasValueEdge{Object: obj.ID, Offset: offset, SizeBits: sizeBits, Value: v})
	return v, other
}

// isCovered returns true if the sorted edges cover the range without gaps.
func isCovered(a []HasValueEdge, offset, sizeBits int64) bool {
	pos := offset
	for _, e := range a {
		if e.Offset > pos {
			return false
		} else if e.End() > pos {
			pos = e.End()
		}
	}
	return pos >= offset+sizeBits
}

// WriteValue returns a new state with v stored at a bit range of obj.
// Writes outside the object or into an invalid object flag an invalid write.
// Writing Unknown forgets the range.
func (s *HeapState) WriteValue(obj *Object, offset, sizeBits int64, v Value) *HeapState {
	if !s.IsObjectValid(obj) {
		return s.SetInvalidWrite(fmt.Sprintf("write to invalid object %s", obj.Label), obj)
	} else if offset < 0 || offset+sizeBits > obj.SizeBits {
		return s.SetInvalidWrite(outOfBoundsReason("write", obj, offset, sizeBits), obj)
	}

	other := s.clone()
	for _, e := range other.overlapping(obj, offset, sizeBits) {
		other.edges = other.edges.Delete(edgeKey{e.Object, e.Offset, e.SizeBits})

		// Keep the parts of a zero edge outside the written range.
		if _, ok := e.Value.(ZeroValue); ok {
			if e.Offset < offset {
				other.setEdge(HasValueEdge{Object: obj.ID, Offset: e.Offset, SizeBits: offset - e.Offset, Value: Zero})
			}
			if end := offset + sizeBits; e.End() > end {
				other.setEdge(HasValueEdge{Object: obj.ID, Offset: end, SizeBits: e.End() - end, Value: Zero})
			}
		}
	}

	if stored := other.storable(v); stored != nil {
		other.setEdge(HasValueEdge{Object: obj.ID, Offset: offset, SizeBits: sizeBits, Value: stored})
	}
	return other
}

// storable converts v into a value that can label an edge. Returns nil for
// values that cannot be stored.
func (s *HeapState) storable(v Value) Value {
	switch v := v.(type) {
	case ZeroValue, SymbolicValue:
		return v
	case ExplicitValue:
		if v.Value == 0 {
			return Zero
		}
		if id, ok := s.literals.Get(v.Value); ok {
			return SymbolicValue{ID: id.(int64)}
		}
		id := s.newID()
		s.putExplicit(id, v.Value)
		return SymbolicValue{ID: id}
	case AddressValue:
		if !IsUnknown(v.Value) {
			return s.storable(v.Value)
		} else if v.Address.IsUnknown() {
			return nil
		}
		return s.pointerTo(v.Address)
	default:
		return nil
	}
}

// IsPointer returns true if v is known to point somewhere.
func (s *HeapState) IsPointer(v Value) bool {
	_, ok := s.PointsTo(v)
	return ok
}

// PointsTo returns the target of v without materializing abstract objects.
func (s *HeapState) PointsTo(v Value) (Address, bool) {
	switch v := v.(type) {
	case ZeroValue:
		return NewAddress(Null, 0), true
	case AddressValue:
		if !v.Address.IsUnknown() {
			return v.Address, true
		}
		return s.PointsTo(v.Value)
	case SymbolicValue:
		if addr, ok := s.pointsTo.Get(v.ID); ok {
			return addr.(Address), true
		}
	}
	return UnknownAddress, false
}

// PointerFromAddress returns the pointer value designating addr, creating a
// points-to edge if no value designates it yet.
func (s *HeapState) PointerFromAddress(addr Address) []AddressValueResult {
	if addr.Object == nil {
		return single(UnknownAddressValue, s)
	} else if addr.IsUnknown() {
		return single(AddressValue{Value: Unknown, Address: addr}, s)
	} else if addr.Object.Kind == NullObject && addr.Offset.Value == 0 {
		return single(AddressValue{Value: Zero, Address: addr}, s)
	}

	if id, ok := s.targets.Get(addressKey{addr.Object.ID, addr.Offset.Value}); ok {
		return single(AddressValue{Value: SymbolicValue{ID: id.(int64)}, Address: addr}, s)
	}
	other := s.clone()
	v := other.pointerTo(addr)
	return single(AddressValue{Value: v, Address: addr}, other)
}

// pointerTo returns the unique value pointing to a known address.
func (s *HeapState) pointerTo(addr Address) SymbolicValue {
	key := addressKey{addr.Object.ID, addr.Offset.Value}
	if id, ok := s.targets.Get(key); ok {
		return SymbolicValue{ID: id.(int64)}
	}
	id := s.newID()
	s.pointsTo = s.pointsTo.Set(id, addr)
	s.targets = s.targets.Set(key, id)
	return SymbolicValue{ID: id}
}

// PointerFromValue returns the address v points to. A pointer to an abstract
// list segment is materialized, which may split the state in two: one in
// which the segment was empty and one in which its first node exists.
func (s *HeapState) PointerFromValue(v Value) []AddressValueResult {
	av := s.pointerValue(v)
	if id, ok := av.Value.(SymbolicValue); ok && !av.Address.IsUnknown() {
		if seg := av.Address.Object; seg.IsAbstract() && av.Address.Offset.Value == 0 {
			return s.materialize(id, seg)
		}
	}
	return single(av, s)
}

// pointerValue returns the address v points to without materializing.
// Integers point into the null object.
func (s *HeapState) pointerValue(v Value) AddressValue {
	if av, ok := v.(AddressValue); ok {
		return av
	} else if addr, ok := s.PointsTo(v); ok {
		return AddressValue{Value: v, Address: addr}
	} else if k, ok := s.GetExplicit(v); ok {
		return AddressValue{Value: v, Address: NewAddress(Null, k*8)}
	} else if IsUnknown(v) {
		return UnknownAddressValue
	}
	return AddressValue{Value: v, Address: UnknownAddress}
}

// materialize concretizes the first node of a list segment pointed to by v.
func (s *HeapState) materialize(v SymbolicValue, seg *Object) []AddressValueResult {
	var results []AddressValueResult
	if seg.MinLength == 0 {
		results = append(results, s.materializeEmpty(v, seg)...)
	}
	return append(results, s.materializeNode(v, seg))
}

// materializeEmpty removes the segment and replaces v with the successor.
func (s *HeapState) materializeEmpty(v SymbolicValue, seg *Object) []AddressValueResult {
	succ, state := s.ReadBits(seg, seg.NextOffset, s.machine.PointerBits)

	other := state.clone()
	other.removeObject(seg)
	other.replaceValue(v, succ)
	return other.PointerFromValue(succ)
}

// materializeNode splits a concrete node off the front of the segment.
func (s *HeapState) materializeNode(v SymbolicValue, seg *Object) AddressValueResult {
	other := s.clone()
	contents := other.Edges(seg)
	other.removeObject(seg)

	minLength := seg.MinLength - 1
	if minLength < 0 {
		minLength = 0
	}
	node := other.addObject(HeapObject, seg.SizeBits, seg.Label)
	rest := other.addObject(ListSegment, seg.SizeBits, seg.Label)
	rest.MinLength, rest.NextOffset = minLength, seg.NextOffset

	for _, e := range contents {
		e.Object = node.ID
		other.setEdge(e)
		e.Object = rest.ID
		other.setEdge(e)
	}

	// The node's successor is the remainder of the segment.
	next := other.pointerTo(NewAddress(rest, 0))
	for _, e := range other.overlapping(node, seg.NextOffset, s.machine.PointerBits) {
		other.edges = other.edges.Delete(edgeKey{e.Object, e.Offset, e.SizeBits})
	}
	other.setEdge(HasValueEdge{Object: node.ID, Offset: seg.NextOffset, SizeBits: s.machine.PointerBits, Value: next})

	addr := NewAddress(node, 0)
	other.pointsTo = other.pointsTo.Set(v.ID, addr)
	other.targets = other.targets.Set(addressKey{node.ID, 0}, v.ID)
	return AddressValueResult{Value: AddressValue{Value: v, Address: addr}, State: other}
}

// replaceValue relabels every edge holding old with v.
func (s *HeapState) replaceValue(old SymbolicValue, v Value) {
	s.pointsTo = s.pointsTo.Delete(old.ID)

	var updates []HasValueEdge
	itr := s.edges.Iterator()
	for !itr.Done() {
		_, ev := itr.Next()
		if e := ev.(HasValueEdge); e.Value == Value(old) {
			e.Value = v
			updates = append(updates, e)
		}
	}
	for _, e := range updates {
		s.setEdge(e)
	}
}

// SetInvalidRead returns a new state flagged with an invalid read of obj.
func (s *HeapState) SetInvalidRead(reason string, obj *Object) *HeapState {
	other := s.withFault(reason, obj)
	other.invalidRead = true
	return other
}

// SetInvalidWrite returns a new state flagged with an invalid write to obj.
func (s *HeapState) SetInvalidWrite(reason string, obj *Object) *HeapState {
	other := s.withFault(reason, obj)
	other.invalidWrite = true
	return other
}

// SetInvalidFree returns a new state flagged with an invalid deallocation.
func (s *HeapState) SetInvalidFree(reason string, obj *Object) *HeapState {
	other := s.withFault(reason, obj)
	other.invalidFree = true
	return other
}

// SetUnknownDereference returns a new state flagged with a dereference of a
// pointer whose target is unknown.
func (s *HeapState) SetUnknownDereference() *HeapState {
	other := s.clone()
	other.unknownDereference = true
	return other
}

func (s *HeapState) withFault(reason string, obj *Object) *HeapState {
	other := s.clone()
	if reason != "" {
		other.reasons = append(s.reasons[:len(s.reasons):len(s.reasons)], reason)
	}
	if obj != nil {
		faults := &intsets.Sparse{}
		faults.Copy(s.faults)
		faults.Insert(int(obj.ID))
		other.faults = faults
	}
	return other
}

// HasInvalidRead returns true if the state performed an invalid read.
func (s *HeapState) HasInvalidRead() bool { return s.invalidRead }

// HasInvalidWrite returns true if the state performed an invalid write.
func (s *HeapState) HasInvalidWrite() bool { return s.invalidWrite }

// HasInvalidFree returns true if the state performed an invalid free.
func (s *HeapState) HasInvalidFree() bool { return s.invalidFree }

// HasUnknownDereference returns true if the state dereferenced a pointer
// with an unknown target.
func (s *HeapState) HasUnknownDereference() bool { return s.unknownDereference }

// HasFault returns true if any invalid memory access was recorded.
func (s *HeapState) HasFault() bool {
	return s.invalidRead || s.invalidWrite || s.invalidFree
}

// Reasons returns the diagnostics attached to faults.
func (s *HeapState) Reasons() []string { return s.reasons }

// FaultObjects returns the objects attached to faults, ordered by id.
func (s *HeapState) FaultObjects() []*Object {
	var a []*Object
	for _, id := range s.faults.AppendTo(nil) {
		if obj := s.Object(int64(id)); obj != nil {
			a = append(a, obj)
		} else {
			a = append(a, &Object{ID: int64(id), Label: "(removed)"})
		}
	}
	return a
}

// Dump returns the contents of the graph as a string.
func (s *HeapState) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "HEAP STATE")
	fmt.Fprintln(&buf, "==========")
	fmt.Fprintf(&buf, "invalid-read=%v invalid-write=%v invalid-free=%v unknown-deref=%v\n",
		s.invalidRead, s.invalidWrite, s.invalidFree, s.unknownDereference)
	if len(s.reasons) > 0 {
		fmt.Fprintf(&buf, "reasons=%s\n", strings.Join(s.reasons, "; "))
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== OBJECTS")
	for _, obj := range s.Objects() {
		valid := ""
		if obj.Kind != NullObject && !s.IsObjectValid(obj) {
			valid = " (invalid)"
		}
		fmt.Fprintf(&buf, "%s%s\n", obj, valid)
		for _, e := range s.Edges(obj) {
			fmt.Fprintf(&buf, "  %s\n", e)
		}
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== POINTS-TO")
	itr := s.pointsTo.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		fmt.Fprintf(&buf, "%s -> %s\n", SymbolicValue{ID: k.(int64)}, v.(Address))
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== EXPLICIT")
	itr = s.explicits.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		fmt.Fprintf(&buf, "%s = %d\n", SymbolicValue{ID: k.(int64)}, v.(int64))
	}

	if s.nonEqual.Len() > 0 || len(s.predicates) > 0 {
		fmt.Fprintln(&buf, "")
		fmt.Fprintln(&buf, "== RELATIONS")
		itr = s.nonEqual.Iterator()
		for !itr.Done() {
			k, _ := itr.Next()
			pair := k.(valuePair)
			fmt.Fprintf(&buf, "%s != %s\n", idValue(pair.a), idValue(pair.b))
		}
		for _, r := range s.predicates {
			fmt.Fprintln(&buf, r.String())
		}
	}
	return buf.String()
}

// outOfBoundsReason describes an access outside an object, in bytes when
// every quantity is byte-aligned.
func outOfBoundsReason(access string, obj *Object, offset, sizeBits int64) string {
	if offset%8 == 0 && sizeBits%8 == 0 && obj.SizeBits%8 == 0 {
		return fmt.Sprintf("%s of %d bytes at byte offset %d is out of bounds of %s (%d bytes)",
			access, sizeBits/8, offset/8, obj.Label, obj.SizeBits/8)
	}
	return fmt.Sprintf("%s of %d bits at bit offset %d is out of bounds of %s (%d bits)",
		access, sizeBits, offset, obj.Label, obj.SizeBits)
}

// valueID returns the id of a value stored in the graph.
func valueID(v Value) (int64, bool) {
	switch v := v.(type) {
	case ZeroValue:
		return zeroID, true
	case SymbolicValue:
		return v.ID, true
	case AddressValue:
		return valueID(v.Value)
	default:
		return 0, false
	}
}

// idValue is the inverse of valueID.
func idValue(id int64) Value {
	if id == zeroID {
		return Zero
	}
	return SymbolicValue{ID: id}
}

// valuePair is an unordered pair of value ids.
type valuePair struct {
	a, b int64
}

func newValuePair(a, b int64) valuePair {
	if a > b {
		a, b = b, a
	}
	return valuePair{a, b}
}

// int64Comparer compares two 64-bit integers. Implements immutable.Comparer.
type int64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not an int64.
func (c *int64Comparer) Compare(a, b interface{}) int {
	return compareInt64(a.(int64), b.(int64))
}

type stringComparer struct{}

func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}

type edgeKeyComparer struct{}

func (c *edgeKeyComparer) Compare(a, b interface{}) int {
	return compareEdgeKey(a.(edgeKey), b.(edgeKey))
}

type addressKeyComparer struct{}

func (c *addressKeyComparer) Compare(a, b interface{}) int {
	return compareAddressKey(a.(addressKey), b.(addressKey))
}

type valuePairComparer struct{}

func (c *valuePairComparer) Compare(a, b interface{}) int {
	x, y := a.(valuePair), b.(valuePair)
	if cmp := compareInt64(x.a, y.a); cmp != 0 {
		return cmp
	}
	return compareInt64(x.b, y.b)
}
