package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/benbjohnson/smg"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

var (
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// reportError writes a parse error with the offending source line. Errors
// without a position are written as is.
func reportError(w io.Writer, filename, src string, err error) {
	var perr participle.Error
	if !errors.As(err, &perr) {
		fmt.Fprintf(w, "%s: %s\n", red("error"), err)
		return
	}
	pos := perr.Position()
	writeSnippet(w, filename, src, perr.Message(), pos.Line, pos.Column)
}

// writeSnippet writes message followed by the source line it refers to.
func writeSnippet(w io.Writer, filename, src, message string, line, column int) {
	var text string
	if lines := strings.Split(src, "\n"); line >= 1 && line <= len(lines) {
		text = lines[line-1]
	}

	width := len(fmt.Sprint(line))
	if width < 3 {
		width = 3
	}
	indent := strings.Repeat(" ", width)
	marker := strings.Repeat(" ", max(0, column-1)) + "^"

	fmt.Fprintf(w, "%s: %s\n", red("error"), message)
	fmt.Fprintf(w, "%s┌─ %s:%d:%d\n", indent, filename, line, column)
	fmt.Fprintf(w, "%s│\n%*d│%s\n%s│%s\n\n", indent, width, line, text, indent, bold(marker))
}

// printState writes the evaluations of a terminated state. Faults point at
// the statement the state stopped on.
func printState(w io.Writer, filename, src string, state *smg.ExecutionState) {
	status := string(state.Status())
	switch state.Status() {
	case smg.ExecutionStatusFinished:
		status = green(status)
	case smg.ExecutionStatusFaulted, smg.ExecutionStatusFailed:
		status = red(status)
	}
	fmt.Fprintf(w, "state #%d: %s\n", state.ID(), status)

	for _, ev := range state.Evaluations() {
		fmt.Fprintf(w, "  %s %s = %s\n", cyan(fmt.Sprintf("%d:", ev.Stmt.Line)), ev.Stmt, formatExplicit(ev.Explicit))
	}

	switch state.Status() {
	case smg.ExecutionStatusFaulted, smg.ExecutionStatusFailed:
		writeSnippet(w, filename, src, state.Reason(), state.Line(), 1)
	case smg.ExecutionStatusInfeasible:
		fmt.Fprintf(w, "  %s\n", state.Reason())
	}
}
