package matcher

import (
	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

const xssProtectionHeader = "X-XSS-Protection"

// XSSProtectionMatcher flags hosts that still send a non-disabled
// X-XSS-Protection header. The header is deprecated and its auditor mode can
// itself introduce vulnerabilities; the only safe value is exactly "0".
// Anything else is recorded as resettable configuration, not as an error.
type XSSProtectionMatcher struct{}

func (m *XSSProtectionMatcher) Kind() finding.Kind {
	return finding.KindWeakXSSProtection
}

func (m *XSSProtectionMatcher) Match(obs *observation.Observation) ([]finding.Detail, error) {
	if !obs.HasHeader(xssProtectionHeader) {
		return nil, nil
	}

	value := obs.HeaderValue(xssProtectionHeader)
	if value == "0" {
		return nil, nil
	}

	return []finding.Detail{{ID: value, Value: value}}, nil
}
