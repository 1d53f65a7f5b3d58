package cparse

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// cLexer splits C source into the tokens needed by the declaration grammar.
// Expressions are rejoined from these tokens and parsed separately.
var cLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`, nil},
		{"Directive", `#[^\n]*`, nil},

		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		// Numbers must come before operators so that ".5" is not split.
		{"Number", `0[xX][0-9a-fA-F]+[uUlL]*|([0-9]+\.[0-9]*|\.[0-9]+)([eE][-+]?[0-9]+)?[fFlL]?|[0-9]+[eE][-+]?[0-9]+[fFlL]?|[0-9]+[uUlL]*`, nil},
		{"Char", `'(\\.|[^'\\])*'`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},

		{"Operator", `\.\.\.|->|<<|>>|<=|>=|==|!=|&&|\|\||\+\+|--|[-+*/%&|^~!<>=?:.,;(){}\[\]]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
