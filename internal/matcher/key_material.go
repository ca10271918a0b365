package matcher

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
)

const (
	// DefaultScanBytes caps how much of a body the key-material scan reads.
	DefaultScanBytes = 1 << 20

	// DefaultContextBytes bounds the audit snippet kept around a match.
	DefaultContextBytes = 32

	// redactKeep is how many leading characters of a secret survive
	// redaction. Enough to recognize the token class, never the secret.
	redactKeep = 6
)

// KeyMaterialConfig bounds the key-material scan.
type KeyMaterialConfig struct {
	// MaxScanBytes is the largest body prefix scanned. Zero means
	// DefaultScanBytes.
	MaxScanBytes int

	// ContextBytes is the window kept on each side of a match in the
	// audit snippet. Zero means DefaultContextBytes.
	ContextBytes int
}

// keyMaterialPattern is one structural secret shape.
type keyMaterialPattern struct {
	name string
	re   *regexp.Regexp
}

var keyMaterialPatterns = []keyMaterialPattern{
	{
		name: "pem_private_key",
		re:   regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )*PRIVATE KEY-----`),
	},
	{
		name: "aws_access_key_id",
		re:   regexp.MustCompile(`\b(?:AKIA|ASIA|AGPA|AROA)[0-9A-Z]{16}\b`),
	},
	{
		name: "jwt",
		re:   regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{6,}\.[A-Za-z0-9_-]{6,}\.[A-Za-z0-9_-]{6,}\b`),
	},
}

// KeyMaterialMatcher scans a bounded window of the response body for
// structural secret shapes: PEM private-key headers, AWS-style access-key
// IDs, and JWT-shaped tokens. Details carry a redacted fragment and a
// bounded context snippet so catalogue records stay safe to log and export.
type KeyMaterialMatcher struct {
	maxScanBytes int
	contextBytes int
}

// NewKeyMaterialMatcher builds a matcher with the given bounds, falling back
// to defaults for zero values.
func NewKeyMaterialMatcher(cfg KeyMaterialConfig) *KeyMaterialMatcher {
	m := &KeyMaterialMatcher{
		maxScanBytes: cfg.MaxScanBytes,
		contextBytes: cfg.ContextBytes,
	}
	if m.maxScanBytes <= 0 {
		m.maxScanBytes = DefaultScanBytes
	}
	if m.contextBytes <= 0 {
		m.contextBytes = DefaultContextBytes
	}
	return m
}

func (m *KeyMaterialMatcher) Kind() finding.Kind {
	return finding.KindKeyMaterialExposure
}

func (m *KeyMaterialMatcher) Match(obs *observation.Observation) ([]finding.Detail, error) {
	body := obs.Body
	if len(body) == 0 {
		return nil, nil
	}
	if len(body) > m.maxScanBytes {
		body = body[:m.maxScanBytes]
	}

	var details []finding.Detail
	seen := map[string]bool{}

	for _, pattern := range keyMaterialPatterns {
		for _, loc := range pattern.re.FindAllIndex(body, -1) {
			match := body[loc[0]:loc[1]]

			sum := sha256.Sum256(match)
			id := pattern.name + ":" + hex.EncodeToString(sum[:8])
			if seen[id] {
				continue
			}
			seen[id] = true

			details = append(details, finding.Detail{
				ID:      id,
				Value:   redact(match),
				Context: m.snippet(body, loc[0], loc[1]),
			})
		}
	}

	return details, nil
}

// redact keeps a short recognizable prefix of the secret and drops the rest.
func redact(match []byte) string {
	if len(match) <= redactKeep {
		return string(match)
	}
	return string(match[:redactKeep]) + "..." + "[redacted]"
}

// snippet returns up to contextBytes on each side of the match with the
// secret itself replaced, never the raw match.
func (m *KeyMaterialMatcher) snippet(body []byte, start, end int) string {
	lo := start - m.contextBytes
	if lo < 0 {
		lo = 0
	}
	hi := end + m.contextBytes
	if hi > len(body) {
		hi = len(body)
	}
	return string(body[lo:start]) + redact(body[start:end]) + string(body[end:hi])
}
