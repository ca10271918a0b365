// Package export provides the read-side projections collaborators consume:
// report generators, the SSLyze scheduler, and the script vulnerability
// scanner. Every projection is a pure filter over a store snapshot taken at
// call time; nothing here caches.
package export

import (
	"path"

	"github.com/mckeimic/mitmscripts/internal/finding"
)

// Catalogue is the read surface projections need from the finding store.
type Catalogue interface {
	Query(pred func(finding.Finding) bool) []finding.Finding
}

// HostsMissingHSTS lists every host with a missing_hsts finding, in
// catalogue order, one entry per host.
func HostsMissingHSTS(c Catalogue) []string {
	return distinctHosts(c.Query(byKind(finding.KindMissingHSTS)))
}

// WeakXSSProtection lists findings for hosts still sending a non-disabled
// X-XSS-Protection header.
func WeakXSSProtection(c Catalogue) []finding.Finding {
	return c.Query(byKind(finding.KindWeakXSSProtection))
}

// KeyMaterialAlerts lists key_material_exposure findings for alerting.
func KeyMaterialAlerts(c Catalogue) []finding.Finding {
	return c.Query(byKind(finding.KindKeyMaterialExposure))
}

// ScriptsPendingScan lists embedded_script findings whose detail identity no
// script_vulnerability finding references yet. External scanners report back
// through the normal upsert contract with the scanned identity in their
// detail context, which removes the script from this queue.
func ScriptsPendingScan(c Catalogue) []finding.Finding {
	scanned := map[string]bool{}
	for _, f := range c.Query(byKind(finding.KindScriptVulnerability)) {
		if f.Detail.Context != "" {
			scanned[f.Host+"\x00"+f.Detail.Context] = true
		}
	}

	return c.Query(func(f finding.Finding) bool {
		return f.Kind == finding.KindEmbeddedScript && !scanned[f.Host+"\x00"+f.Detail.ID]
	})
}

// SSLyzeCandidates lists hosts eligible for an external SSLyze scan: hosts
// with at least one finding, matching the glob pattern, without an
// sslyze_result finding yet. An empty pattern matches every host.
func SSLyzeCandidates(c Catalogue, pattern string) []string {
	scanned := map[string]bool{}
	for _, f := range c.Query(byKind(finding.KindSSLyzeResult)) {
		scanned[f.Host] = true
	}

	return distinctHosts(c.Query(func(f finding.Finding) bool {
		if f.Kind == finding.KindSSLyzeResult || scanned[f.Host] {
			return false
		}
		if pattern == "" {
			return true
		}
		ok, err := path.Match(pattern, f.Host)
		return err == nil && ok
	}))
}

func byKind(kind finding.Kind) func(finding.Finding) bool {
	return func(f finding.Finding) bool { return f.Kind == kind }
}

func distinctHosts(findings []finding.Finding) []string {
	seen := map[string]bool{}
	var hosts []string
	for _, f := range findings {
		if !seen[f.Host] {
			seen[f.Host] = true
			hosts = append(hosts, f.Host)
		}
	}
	return hosts
}
