package c

import (
	"fmt"
)

// DeclKind represents the category of a declared name.
type DeclKind int

// Declaration kinds.
const (
	VariableDecl = DeclKind(iota)
	FunctionDecl
	EnumeratorDecl
)

// Decl represents a declared variable, function or enumerator.
type Decl struct {
	Kind DeclKind
	Name string
	Type *Type

	// Global is set for file-scope variables.
	Global bool

	// Defined is set for functions with a body in the analyzed program.
	Defined bool

	// Value of an enumerator.
	Value int64
}

// NewVariable returns a variable declaration.
func NewVariable(name string, typ *Type, global bool) *Decl {
	return &Decl{Kind: VariableDecl, Name: name, Type: typ, Global: global}
}

// NewFunctionDecl returns a function declaration.
func NewFunctionDecl(name string, typ *Type, defined bool) *Decl {
	return &Decl{Kind: FunctionDecl, Name: name, Type: typ, Global: true, Defined: defined}
}

// NewEnumerator returns an enumerator declaration of type int.
func NewEnumerator(name string, value int64) *Decl {
	return &Decl{Kind: EnumeratorDecl, Name: name, Type: IntType, Global: true, Value: value}
}

// String returns a C-like declaration.
func (d *Decl) String() string {
	switch d.Kind {
	case EnumeratorDecl:
		return fmt.Sprintf("%s = %d", d.Name, d.Value)
	default:
		return fmt.Sprintf("%s %s", d.Type, d.Name)
	}
}

// Edge represents the program point at which an expression is evaluated.
type Edge struct {
	// Declaration made by this edge, if any.
	Decl *Decl

	Line int
	Text string
}

// Declares returns true if the edge is the declaration of a variable whose
// type is or contains typ.
func (e *Edge) Declares(typ *Type) bool {
	if e == nil || e.Decl == nil || e.Decl.Kind != VariableDecl {
		return false
	}
	return e.Decl.Type.Contains(typ)
}

// String returns a description of the edge.
func (e *Edge) String() string {
	if e == nil {
		return "<none>"
	} else if e.Text != "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Text)
	}
	return fmt.Sprintf("line %d", e.Line)
}
