package cmd

import (
	"github.com/fatih/color"

	"github.com/mckeimic/mitmscripts/internal/finding"
)

var (
	colorInfo  = color.New(color.FgCyan).SprintFunc()
	colorWarn  = color.New(color.FgYellow).SprintFunc()
	colorAlert = color.New(color.FgRed).SprintFunc()
)

// formatKindWithColor colors a finding kind by how urgent it usually is:
// exposed key material red, header findings yellow, the rest informational.
func formatKindWithColor(kind finding.Kind) string {
	switch kind {
	case finding.KindKeyMaterialExposure:
		return colorAlert(string(kind))
	case finding.KindMissingHSTS, finding.KindWeakXSSProtection, finding.KindScriptVulnerability:
		return colorWarn(string(kind))
	default:
		return colorInfo(string(kind))
	}
}
