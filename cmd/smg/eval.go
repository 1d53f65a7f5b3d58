package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/benbjohnson/smg"
	"github.com/benbjohnson/smg/c"
	"github.com/benbjohnson/smg/cparse"
	"github.com/davecgh/go-spew/spew"
)

// EvalCommand represents a command for running a scenario.
type EvalCommand struct {
	Stdout io.Writer

	// If set, print the options and the heap of every terminated state.
	Dump bool

	// If set, explore states breadth-first instead of depth-first.
	BFS bool
}

// NewEvalCommand returns a new instance of EvalCommand.
func NewEvalCommand(w io.Writer) *EvalCommand {
	return &EvalCommand{Stdout: w}
}

// Run executes the "eval" subcommand against the scenario at path.
func (cmd *EvalCommand) Run(ctx context.Context, path string) error {
	s, err := ReadScenario(path)
	if err != nil {
		return err
	}

	machine, err := c.LookupMachine(s.Machine)
	if err != nil {
		return err
	}

	filename := filepath.Base(path)
	stmts, err := cparse.NewParser(machine).ParseProgram(filename, s.Program)
	if err != nil {
		reportError(cmd.Stdout, filename, s.Program, err)
		return fmt.Errorf("%s: invalid program", path)
	}

	if cmd.Dump {
		spew.Fdump(cmd.Stdout, s.Options)
	}

	e := smg.NewExecutor(smg.NewEvaluator(machine, s.Options), stmts)
	if cmd.BFS || s.Search == "bfs" {
		e.Searcher = smg.NewBFSSearcher()
	}
	states, err := e.Run(ctx)
	if err != nil {
		return err
	}

	for _, state := range states {
		printState(cmd.Stdout, filename, s.Program, state)
		if cmd.Dump {
			fmt.Fprintln(cmd.Stdout, state.Heap().Dump())
		}
	}
	return s.Check(states)
}
