package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
	"github.com/benbjohnson/smg/cparse"
)

// ExprCommand represents a command for evaluating one expression.
type ExprCommand struct {
	Stdout io.Writer

	// Declarations and statements run before the expression.
	Decls []string

	// Name of the machine model.
	Machine string
}

// NewExprCommand returns a new instance of ExprCommand.
func NewExprCommand(w io.Writer) *ExprCommand {
	return &ExprCommand{Stdout: w}
}

// Run executes the "expr" subcommand and prints the value of expr on
// every path.
func (cmd *ExprCommand) Run(ctx context.Context, expr string) error {
	machine, err := c.LookupMachine(cmd.Machine)
	if err != nil {
		return err
	}

	var buf strings.Builder
	for _, decl := range cmd.Decls {
		buf.WriteString(decl)
		if !strings.HasSuffix(strings.TrimSpace(decl), ";") {
			buf.WriteString(";")
		}
		buf.WriteString("\n")
	}
	fmt.Fprintf(&buf, "eval(%s);\n", expr)
	src := buf.String()

	stmts, err := cparse.NewParser(machine).ParseProgram("expr", src)
	if err != nil {
		reportError(cmd.Stdout, "expr", src, err)
		return fmt.Errorf("invalid expression")
	}

	states, err := smg.NewExecutor(smg.NewEvaluator(machine, smg.DefaultOptions()), stmts).Run(ctx)
	if err != nil {
		return err
	}
	for _, state := range states {
		printState(cmd.Stdout, "expr", src, state)
	}
	return nil
}
