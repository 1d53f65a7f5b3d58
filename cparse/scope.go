package cparse

import (
	"sort"

	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
)

// Scope holds the names and tags declared by a program. A straight-line
// program has a single block so there is no nesting.
type Scope struct {
	decls map[string]*c.Decl
	tags  map[string]*c.Type
}

// NewScope returns a new, empty scope.
func NewScope() *Scope {
	return &Scope{
		decls: make(map[string]*c.Decl),
		tags:  make(map[string]*c.Type),
	}
}

// Lookup returns the declaration of name, if any.
func (s *Scope) Lookup(name string) *c.Decl {
	return s.decls[name]
}

// Declare adds decl to the scope. Functions may be declared more than once.
func (s *Scope) Declare(decl *c.Decl) error {
	if prev := s.decls[decl.Name]; prev != nil {
		if prev.Kind == c.FunctionDecl && decl.Kind == c.FunctionDecl {
			prev.Defined = prev.Defined || decl.Defined
			return nil
		}
		return errors.Errorf("redeclaration of %q", decl.Name)
	}
	s.decls[decl.Name] = decl
	return nil
}

// Decls returns all declarations sorted by name.
func (s *Scope) Decls() []*c.Decl {
	a := make([]*c.Decl, 0, len(s.decls))
	for _, decl := range s.decls {
		a = append(a, decl)
	}
	sort.Slice(a, func(i, j int) bool { return a[i].Name < a[j].Name })
	return a
}

// LookupTag returns the struct, union or enum type declared with tag.
func (s *Scope) LookupTag(kind c.TypeKind, tag string) *c.Type {
	if t := s.tags[tag]; t != nil && t.Kind == kind {
		return t
	}
	return nil
}

// tagType returns the type for tag, creating an incomplete type on first
// use. A tag already used for a different kind of type is an error.
func (s *Scope) tagType(kind c.TypeKind, tag string) (*c.Type, error) {
	if t := s.tags[tag]; t != nil {
		if t.Kind != kind {
			return nil, errors.Errorf("%q defined as wrong kind of tag", tag)
		}
		return t, nil
	}
	t := &c.Type{Kind: kind, Tag: tag}
	if tag != "" {
		s.tags[tag] = t
	}
	return t, nil
}
