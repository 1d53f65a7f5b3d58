package cparse

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar covers the declarations and statements of a straight-line
// program. Expressions are kept as balanced token runs and handed to the C
// expression parser once the declarations they refer to are known.

type file struct {
	Items []*item `@@*`
}

type item struct {
	Pos lexer.Position

	Assume *assumeStmt  `  @@`
	Eval   *evalStmt    `| @@`
	Decl   *declaration `| @@`
	Expr   *exprStmt    `| @@`
}

type assumeStmt struct {
	Cond *expr `"assume" "(" @@ ")" ";"`
}

type evalStmt struct {
	Expr *expr `"eval" "(" @@ ")" ";"`
}

type exprStmt struct {
	LHS *expr `@@`
	RHS *expr `( "=" @@ )? ";"`
}

type declaration struct {
	Storage     string            `@( "extern" | "static" )?`
	Spec        *typeSpec         `@@`
	Declarators []*initDeclarator `( @@ ( "," @@ )* )? ";"`
}

type typeSpec struct {
	Aggregate *aggregateSpec `  @@`
	Enum      *enumSpec      `| @@`
	Basic     []string       `| @( "void" | "_Bool" | "char" | "short" | "int" | "long" | "signed" | "unsigned" | "float" | "double" | "const" | "volatile" )+`
}

type aggregateSpec struct {
	Kind   string       `@( "struct" | "union" )`
	Tag    string       `@Ident?`
	Body   string       `( @"{"`
	Fields []*fieldDecl `  @@* "}" )?`
}

type fieldDecl struct {
	Spec        *typeSpec          `@@`
	Declarators []*fieldDeclarator `@@ ( "," @@ )* ";"`
}

type fieldDeclarator struct {
	Declarator *declarator `@@`
	Width      *expr       `( ":" @@ )?`
}

type enumSpec struct {
	Tag     string        `"enum" @Ident?`
	Body    string        `( @"{"`
	Members []*enumerator `  @@ ( "," @@ )* "}" )?`
}

type enumerator struct {
	Name  string `@Ident`
	Value *expr  `( "=" @@ )?`
}

type initDeclarator struct {
	Declarator *declarator `@@`
	Init       *expr       `( "=" @@ )?`
}

type declarator struct {
	Pointers []string     `@"*"*`
	Name     string       `@Ident`
	Params   *paramList   `@@?`
	Dims     []*dimension `@@*`
}

type paramList struct {
	Open   string   `@"("`
	Params []*param `( @@ ( "," @@ )* )? ")"`
}

type param struct {
	Ellipsis bool         `  @"..."`
	Spec     *typeSpec    `| @@`
	Pointers []string     `  @"*"*`
	Name     string       `  @Ident?`
	Dims     []*dimension `  @@*`
}

type dimension struct {
	Open string `@"["`
	Len  *expr  `@@? "]"`
}

// expr is a run of tokens up to the next top-level separator.
type expr struct {
	Terms []*term `@@+`
}

type term struct {
	Group *group `  @@`
	Token string `| @~( "(" | ")" | "[" | "]" | "{" | "}" | "," | ";" | "=" )`
}

type group struct {
	Open  string   `@( "(" | "[" )`
	Inner []*inner `@@*`
	Close string   `@( ")" | "]" )`
}

type inner struct {
	Group *group `  @@`
	Token string `| @~( "(" | ")" | "[" | "]" | ";" )`
}

// String returns the source text of the expression with tokens separated
// by single spaces.
func (e *expr) String() string {
	var tokens []string
	for _, t := range e.Terms {
		if t.Group != nil {
			tokens = t.Group.appendTokens(tokens)
		} else {
			tokens = append(tokens, t.Token)
		}
	}
	return strings.Join(tokens, " ")
}

func (g *group) appendTokens(tokens []string) []string {
	tokens = append(tokens, g.Open)
	for _, in := range g.Inner {
		if in.Group != nil {
			tokens = in.Group.appendTokens(tokens)
		} else {
			tokens = append(tokens, in.Token)
		}
	}
	return append(tokens, g.Close)
}

var grammar = participle.MustBuild[file](
	participle.Lexer(cLexer),
	participle.Elide("Whitespace", "Comment", "Directive"),
	participle.UseLookahead(4),
)
