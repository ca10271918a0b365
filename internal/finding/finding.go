// Package finding defines the catalogue's domain model: a deduplicated,
// host-keyed record of security-relevant conditions observed in passing
// traffic.
package finding

import (
	"fmt"
	"time"

	sharedErrors "github.com/mckeimic/mitmscripts/internal/shared/errors"
)

// Kind names one category of security-relevant condition.
type Kind string

const (
	// KindMissingHSTS marks a secure host serving responses without an
	// effective Strict-Transport-Security policy.
	KindMissingHSTS Kind = "missing_hsts"

	// KindWeakXSSProtection marks a host sending a non-disabled
	// X-XSS-Protection header. The header is deprecated; this is flagged
	// as resettable configuration, not as an error.
	KindWeakXSSProtection Kind = "weak_xss_protection"

	// KindEmbeddedScript records a script referenced by or embedded in an
	// observed response.
	KindEmbeddedScript Kind = "embedded_script"

	// KindKeyMaterialExposure records key or credential material spotted
	// in a response body. Details are redacted before they reach the
	// catalogue.
	KindKeyMaterialExposure Kind = "key_material_exposure"

	// KindSSLyzeResult is reported by the external SSLyze collaborator,
	// appended through the same upsert contract as core findings.
	KindSSLyzeResult Kind = "sslyze_result"

	// KindScriptVulnerability is reported back by the external script
	// vulnerability scanner. Its detail context references the
	// embedded_script detail identity it scanned.
	KindScriptVulnerability Kind = "script_vulnerability"
)

// Kinds lists every kind the catalogue accepts.
var Kinds = []Kind{
	KindMissingHSTS,
	KindWeakXSSProtection,
	KindEmbeddedScript,
	KindKeyMaterialExposure,
	KindSSLyzeResult,
	KindScriptVulnerability,
}

// Valid reports whether k belongs to the closed kind set.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Detail is kind-specific structured data attached to a finding. ID is the
// detail's identity within (host, kind): two details with the same ID are
// the same finding. An empty ID is legal and means the kind itself is the
// whole identity (e.g. missing_hsts has exactly one record per host).
type Detail struct {
	ID      string `json:"id,omitempty"`
	Value   string `json:"value,omitempty"`
	Context string `json:"context,omitempty"`
}

// Finding is one deduplicated catalogue record.
type Finding struct {
	Host      string    `json:"host"`
	Kind      Kind      `json:"kind"`
	Detail    Detail    `json:"detail"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// New builds a finding observed at a single instant.
func New(host string, kind Kind, detail Detail, seen time.Time) Finding {
	return Finding{
		Host:      host,
		Kind:      kind,
		Detail:    detail,
		FirstSeen: seen,
		LastSeen:  seen,
	}
}

// Validate checks the fields every catalogue record must carry.
func (f Finding) Validate() error {
	if f.Host == "" {
		return fmt.Errorf("%w: %v", sharedErrors.ErrInvalidFinding, sharedErrors.ErrEmptyHost)
	}
	if f.Kind == "" {
		return fmt.Errorf("%w: %v", sharedErrors.ErrInvalidFinding, sharedErrors.ErrEmptyKind)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: %q", sharedErrors.ErrUnknownKind, f.Kind)
	}
	return nil
}

// Key returns the catalogue identity of the finding. Repeated observations
// of the same key update timestamps, never create a second record.
func (f Finding) Key() string {
	return f.Host + "\x00" + string(f.Kind) + "\x00" + f.Detail.ID
}

// Merge folds another observation of the same finding into f, keeping the
// earliest FirstSeen and the latest LastSeen. Detail payloads of later
// observations win so the record reflects the most recent evidence.
func (f *Finding) Merge(other Finding) {
	if other.FirstSeen.Before(f.FirstSeen) {
		f.FirstSeen = other.FirstSeen
	}
	if other.LastSeen.After(f.LastSeen) {
		f.LastSeen = other.LastSeen
		f.Detail = other.Detail
	}
}

// Less orders findings for deterministic reporting: host, then FirstSeen,
// then kind and detail identity as tie-breakers.
func Less(a, b Finding) bool {
	if a.Host != b.Host {
		return a.Host < b.Host
	}
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.Before(b.FirstSeen)
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Detail.ID < b.Detail.ID
}
