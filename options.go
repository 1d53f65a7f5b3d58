package smg

import (
	"github.com/pkg/errors"
)

// ExternalFunctionPolicy decides how calls to functions without a body or a
// builtin model are treated by the mutating evaluator.
type ExternalFunctionPolicy string

// External function policies.
const (
	// PolicyStrict rejects the call with an UnknownExternalFunction error.
	PolicyStrict = ExternalFunctionPolicy("strict")

	// PolicyAssumeSafe treats the call as a no-op returning an unknown value.
	PolicyAssumeSafe = ExternalFunctionPolicy("assume-safe")

	// PolicyAssumeExternalAllocated treats the call as a no-op. A call
	// returning a pointer returns fresh memory owned by external code.
	PolicyAssumeExternalAllocated = ExternalFunctionPolicy("assume-external-allocated")
)

// Options configures an Evaluator.
type Options struct {
	ExternalFunctionPolicy ExternalFunctionPolicy `yaml:"external-function-policy"`

	// Functions treated as safe no-ops regardless of the policy.
	SafeFunctions []string `yaml:"safe-functions"`

	// Size, in bits, of memory returned by external functions.
	ExternalAllocationSize int64 `yaml:"external-allocation-size"`

	// Value invented by the forced explicit evaluator.
	ForcedGuess int64 `yaml:"forced-guess"`

	// If set, allocations may fail and return null.
	EnableMallocFailure bool `yaml:"enable-malloc-failure"`

	// If set, undecided comparisons taken by Assume are recorded on the state.
	TrackPredicates bool `yaml:"track-predicates"`

	// Maximum stack size, in bits, for local variables. Zero is unlimited.
	StackLimitBits int64 `yaml:"stack-limit-bits"`

	// If set, allocations of unknown size use the forced explicit evaluator.
	GuessSizeOfUnknownMemorySize bool `yaml:"guess-size-of-unknown-memory-size"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		ExternalFunctionPolicy: PolicyAssumeSafe,
		ExternalAllocationSize: 8 * 8,
		ForcedGuess:            2,
		EnableMallocFailure:    true,
	}
}

// Validate returns an error if the options are inconsistent.
func (o *Options) Validate() error {
	switch o.ExternalFunctionPolicy {
	case PolicyStrict, PolicyAssumeSafe, PolicyAssumeExternalAllocated:
	case "":
		o.ExternalFunctionPolicy = PolicyAssumeSafe
	default:
		return errors.Errorf("invalid external function policy: %q", o.ExternalFunctionPolicy)
	}

	if o.ExternalAllocationSize < 0 {
		return errors.Errorf("invalid external allocation size: %d", o.ExternalAllocationSize)
	} else if o.StackLimitBits < 0 {
		return errors.Errorf("invalid stack limit: %d", o.StackLimitBits)
	}
	return nil
}

// IsSafeFunction returns true if name was configured as a safe function.
func (o *Options) IsSafeFunction(name string) bool {
	for _, fn := range o.SafeFunctions {
		if fn == name {
			return true
		}
	}
	return false
}
