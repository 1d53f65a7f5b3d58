package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/benbjohnson/smg"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a program together with the machine and evaluator options it
// runs under and the terminated states it is expected to produce.
type Scenario struct {
	Machine string        `yaml:"machine"`
	Search  string        `yaml:"search"`
	Options smg.Options   `yaml:"options"`
	Program string        `yaml:"program"`
	Expect  []Expectation `yaml:"expect"`
}

// Expectation describes one terminated state, in termination order.
type Expectation struct {
	Status smg.ExecutionStatus `yaml:"status"`

	// Substring of the termination reason.
	Reason string `yaml:"reason"`

	// Explicit value of each eval statement. "?" matches an unknown value.
	Values []string `yaml:"values"`
}

// ReadScenario reads a scenario from a YAML file. Options missing from the
// file keep their default values.
func ReadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := &Scenario{Options: smg.DefaultOptions()}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	switch s.Search {
	case "", "dfs", "bfs":
	default:
		return nil, errors.Errorf("%s: unknown search strategy %q", path, s.Search)
	}
	if err := s.Options.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// Check returns an error describing the first state that does not match
// its expectation. Scenarios without expectations always pass.
func (s *Scenario) Check(states []*smg.ExecutionState) error {
	if len(s.Expect) == 0 {
		return nil
	} else if len(states) != len(s.Expect) {
		return errors.Errorf("expected %d terminated states, got %d", len(s.Expect), len(states))
	}

	for i, exp := range s.Expect {
		if err := exp.check(states[i]); err != nil {
			return errors.Wrapf(err, "state #%d", states[i].ID())
		}
	}
	return nil
}

func (exp *Expectation) check(state *smg.ExecutionState) error {
	if exp.Status != "" && state.Status() != exp.Status {
		return errors.Errorf("expected status %s, got %s (%s)", exp.Status, state.Status(), state.Reason())
	} else if exp.Reason != "" && !strings.Contains(state.Reason(), exp.Reason) {
		return errors.Errorf("expected reason containing %q, got %q", exp.Reason, state.Reason())
	}

	if exp.Values == nil {
		return nil
	}
	evs := state.Evaluations()
	if len(evs) != len(exp.Values) {
		return errors.Errorf("expected %d evaluations, got %d", len(exp.Values), len(evs))
	}
	for i, ev := range evs {
		if got := formatExplicit(ev.Explicit); got != exp.Values[i] {
			return errors.Errorf("line %d: %s: expected %s, got %s", ev.Stmt.Line, ev.Stmt, exp.Values[i], got)
		}
	}
	return nil
}

// formatExplicit returns the decimal value of x or "?" if it is unknown.
func formatExplicit(x smg.Explicit) string {
	if !x.Known {
		return "?"
	}
	return strconv.FormatInt(x.Value, 10)
}
