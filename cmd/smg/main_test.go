package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestEvalCommand_Run(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	} else if len(paths) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewEvalCommand(&buf).Run(context.Background(), path); err != nil {
				t.Fatalf("%s\n%s", err, buf.String())
			}
		})
	}

	t.Run("BFS", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewEvalCommand(&buf)
		cmd.BFS = true

		// Breadth-first search terminates the successful allocation first.
		err := cmd.Run(context.Background(), filepath.Join("..", "..", "testdata", "malloc_failure.yaml"))
		if err == nil || !strings.Contains(err.Error(), "expected 1, got 0") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Dump", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := NewEvalCommand(&buf)
		cmd.Dump = true
		if err := cmd.Run(context.Background(), filepath.Join("..", "..", "testdata", "assume.yaml")); err != nil {
			t.Fatal(err)
		} else if s := buf.String(); !strings.Contains(s, "ForcedGuess") || !strings.Contains(s, "HEAP STATE") {
			t.Fatalf("unexpected output: %s", s)
		}
	})

	t.Run("Mismatch", func(t *testing.T) {
		path := writeScenario(t, `
program: |
  int a = 1;
  eval(a + 1);
expect:
  - status: finished
    values: ["3"]
`)
		var buf bytes.Buffer
		if err := NewEvalCommand(&buf).Run(context.Background(), path); err == nil || !strings.Contains(err.Error(), "expected 3, got 2") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		path := writeScenario(t, `
program: |
  int a;
  eval(b);
`)
		var buf bytes.Buffer
		if err := NewEvalCommand(&buf).Run(context.Background(), path); err == nil {
			t.Fatal("expected error")
		} else if s := buf.String(); !strings.Contains(s, "error:") || !strings.Contains(s, "eval(b);") {
			t.Fatalf("unexpected output: %s", s)
		}
	})

	t.Run("UnknownField", func(t *testing.T) {
		path := writeScenario(t, "programme: |\n  int a;\n")
		if err := NewEvalCommand(&bytes.Buffer{}).Run(context.Background(), path); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		path := writeScenario(t, "options:\n  external-function-policy: reckless\nprogram: |\n  int a;\n")
		if err := NewEvalCommand(&bytes.Buffer{}).Run(context.Background(), path); err == nil || !strings.Contains(err.Error(), "reckless") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestExprCommand_Run(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewExprCommand(&buf)
	cmd.Machine = "lp64"
	cmd.Decls = []string{"int a[4]", "int *p = &a[3];"}
	if err := cmd.Run(context.Background(), "p - a"); err != nil {
		t.Fatal(err)
	} else if s := buf.String(); !strings.Contains(s, "= 3\n") || !strings.Contains(s, "finished") {
		t.Fatalf("unexpected output: %s", s)
	}
}

func TestRun(t *testing.T) {
	t.Run("Expr", func(t *testing.T) {
		var buf bytes.Buffer
		if err := run(context.Background(), []string{"expr", "--machine", "ilp32", "-d", "long x", "sizeof x"}, &buf); err != nil {
			t.Fatal(err)
		} else if !strings.Contains(buf.String(), "= 4\n") {
			t.Fatalf("unexpected output: %s", buf.String())
		}
	})

	t.Run("MissingScenario", func(t *testing.T) {
		if err := run(context.Background(), []string{"eval"}, &bytes.Buffer{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

// writeScenario writes a scenario to a temporary file and returns its path.
func writeScenario(tb testing.TB, s string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimPrefix(s, "\n")), 0o666); err != nil {
		tb.Fatal(err)
	}
	return path
}
