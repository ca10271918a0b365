package matcher

import (
	"strings"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

const hstsHeader = "Strict-Transport-Security"

// HSTSMatcher flags secure hosts that serve responses without an effective
// Strict-Transport-Security policy. HSTS is meaningless without transport
// security, so plaintext exchanges never match regardless of headers.
type HSTSMatcher struct{}

func (m *HSTSMatcher) Kind() finding.Kind {
	return finding.KindMissingHSTS
}

func (m *HSTSMatcher) Match(obs *observation.Observation) ([]finding.Detail, error) {
	if !obs.Secure {
		return nil, nil
	}

	value := obs.HeaderValue(hstsHeader)
	if obs.HasHeader(hstsHeader) && !hstsDisabled(value) {
		return nil, nil
	}

	// One empty-identity detail per host; Value keeps the observed header
	// for the audit record (empty when the header was absent entirely).
	return []finding.Detail{{Value: value}}, nil
}

// hstsDisabled reports whether a present HSTS header is a no-op. A max-age
// of zero instructs clients to forget the policy (RFC 6797 section 6.1.1).
func hstsDisabled(value string) bool {
	for _, directive := range strings.Split(value, ";") {
		directive = strings.TrimSpace(strings.ToLower(directive))
		if name, rest, ok := strings.Cut(directive, "="); ok && strings.TrimSpace(name) == "max-age" {
			if strings.Trim(strings.TrimSpace(rest), `"`) == "0" {
				return true
			}
		}
	}
	return false
}
