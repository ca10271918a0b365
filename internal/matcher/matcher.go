// Package matcher holds the stateless checks the classifier runs against
// each observed exchange. A matcher inspects one observation and returns the
// kind-specific details it found; it never mutates shared state and never
// blocks. New checks plug in through the registry without touching the
// classifier.
package matcher

import (
	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

// Matcher detects one category of security-relevant condition.
type Matcher interface {
	// Kind names the finding kind this matcher produces.
	Kind() finding.Kind

	// Match inspects one observation and returns zero or more details,
	// one per distinct condition found.
	Match(obs *observation.Observation) ([]finding.Detail, error)
}

// Registry is an ordered collection of matchers.
type Registry struct {
	matchers []Matcher
}

// NewRegistry builds a registry holding the given matchers.
func NewRegistry(matchers ...Matcher) *Registry {
	r := &Registry{}
	for _, m := range matchers {
		r.Register(m)
	}
	return r
}

// Register appends a matcher. Registration order is the order matchers run.
func (r *Registry) Register(m Matcher) {
	if m == nil {
		return
	}
	r.matchers = append(r.matchers, m)
}

// Matchers returns the registered matchers in registration order.
func (r *Registry) Matchers() []Matcher {
	out := make([]Matcher, len(r.matchers))
	copy(out, r.matchers)
	return out
}

// Default returns a registry with every built-in matcher, using cfg to bound
// the key-material scan.
func Default(cfg KeyMaterialConfig) *Registry {
	return NewRegistry(
		&HSTSMatcher{},
		&XSSProtectionMatcher{},
		&ScriptMatcher{},
		NewKeyMaterialMatcher(cfg),
	)
}
