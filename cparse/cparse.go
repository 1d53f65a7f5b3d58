// Package cparse reads the straight-line C programs driven by the smg
// executor. Declarations are parsed with a participle grammar and
// expressions with the rsc.io/c2go C parser, then typed against the
// declarations seen so far.
package cparse

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
)

var logger = commonlog.GetLogger("smg.cparse")

// Error is a semantic error at a position in the source.
type Error struct {
	Pos lexer.Position
	Err error
}

// Error returns the error message prefixed with its position.
func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Err) }

// Message returns the error message without its position.
func (e *Error) Message() string { return e.Err.Error() }

// Position returns the position of the error.
func (e *Error) Position() lexer.Position { return e.Pos }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Parser converts C source into typed expressions and statements. Names
// declared by one call remain visible to the next.
type Parser struct {
	machine *c.Machine
	scope   *Scope
}

// NewParser returns a new parser for programs targeting machine.
func NewParser(machine *c.Machine) *Parser {
	return &Parser{machine: machine, scope: NewScope()}
}

// Scope returns the declarations made so far.
func (p *Parser) Scope() *Scope { return p.scope }

// ParseProgram parses a program. filename is only used in error positions.
//
// The grammar accepts declarations, assignments, expression statements,
// "assume(cond);" and "eval(expr);". Variables declared static or extern
// are global, all others are locals of the single block.
func (p *Parser) ParseProgram(filename, src string) ([]smg.Stmt, error) {
	f, err := grammar.ParseString(filename, src)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(src, "\n")
	var stmts []smg.Stmt
	for _, it := range f.Items {
		pos := smg.Pos{Line: it.Pos.Line}
		if it.Pos.Line > 0 && it.Pos.Line <= len(lines) {
			pos.Text = strings.TrimSpace(lines[it.Pos.Line-1])
		}

		a, err := p.item(it, pos)
		if err != nil {
			return nil, &Error{Pos: it.Pos, Err: err}
		}
		stmts = append(stmts, a...)
	}
	return stmts, nil
}

func (p *Parser) item(it *item, pos smg.Pos) ([]smg.Stmt, error) {
	switch {
	case it.Assume != nil:
		cond, err := p.convertExpr(it.Assume.Cond)
		if err != nil {
			return nil, err
		}

		// assume(!x) is stored as x with a false truth value.
		truth := true
		for {
			not, ok := cond.(*c.UnaryExpr)
			if !ok || not.Op != c.UnaryNot {
				break
			}
			cond, truth = not.Operand, !truth
		}
		return []smg.Stmt{&smg.AssumeStmt{Cond: cond, Truth: truth, Pos: pos}}, nil

	case it.Eval != nil:
		x, err := p.convertExpr(it.Eval.Expr)
		if err != nil {
			return nil, err
		}
		return []smg.Stmt{&smg.EvalStmt{Expr: x, Pos: pos}}, nil

	case it.Decl != nil:
		return p.declaration(it.Decl, pos)

	default:
		lhs, err := p.convertExpr(it.Expr.LHS)
		if err != nil {
			return nil, err
		} else if it.Expr.RHS == nil {
			return []smg.Stmt{&smg.EvalStmt{Expr: lhs, Pos: pos}}, nil
		} else if !c.IsLvalue(lhs) {
			return nil, errors.Errorf("expression is not assignable: %s", lhs)
		}

		rhs, err := p.convertExpr(it.Expr.RHS)
		if err != nil {
			return nil, err
		}
		return []smg.Stmt{&smg.AssignStmt{LHS: lhs, RHS: rhs, Pos: pos}}, nil
	}
}

func (p *Parser) declaration(decl *declaration, pos smg.Pos) ([]smg.Stmt, error) {
	base, err := p.specType(decl.Spec)
	if err != nil {
		return nil, err
	}

	var stmts []smg.Stmt
	for _, d := range decl.Declarators {
		typ, err := p.declaratorType(base, d.Declarator)
		if err != nil {
			return nil, err
		}

		name := d.Declarator.Name
		if typ.IsFunction() {
			if d.Init != nil {
				return nil, errors.Errorf("illegal initializer for function %q", name)
			}
			if err := p.scope.Declare(c.NewFunctionDecl(name, typ, false)); err != nil {
				return nil, err
			}
			continue
		} else if typ.Kind == c.Void {
			return nil, errors.Errorf("variable %q has incomplete type void", name)
		}

		v := c.NewVariable(name, typ, decl.Storage != "")
		if err := p.scope.Declare(v); err != nil {
			return nil, err
		}

		stmt := &smg.DeclStmt{Decl: v, Pos: pos}
		if d.Init != nil {
			if stmt.Init, err = p.convertExpr(d.Init); err != nil {
				return nil, err
			}
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}
