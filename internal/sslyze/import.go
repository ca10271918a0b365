// Package sslyze turns SSLyze JSON output into catalogue findings. The scan
// itself happens outside this process; results come back through the same
// upsert contract as every other finding, as opaque sslyze_result records.
package sslyze

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/observation"
	sharedErrors "github.com/mckeimic/mitmscripts/internal/shared/errors"
)

// maxResultValue caps how much of a raw per-server result is carried in the
// finding value. Full output stays in the SSLyze report file; the catalogue
// only needs enough to identify the result.
const maxResultValue = 2048

// ParseResults extracts one finding per scanned server from SSLyze's JSON
// output (`sslyze --json_out`). observedAt stamps the findings; pass the
// scan completion time when known.
func ParseResults(data []byte, observedAt time.Time) ([]finding.Finding, error) {
	if !gjson.ValidBytes(data) {
		return nil, sharedErrors.ErrUnrecognizedScanOutput
	}

	root := gjson.ParseBytes(data)
	results := root.Get("server_scan_results")
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: missing server_scan_results", sharedErrors.ErrUnrecognizedScanOutput)
	}

	var findings []finding.Finding
	results.ForEach(func(_, result gjson.Result) bool {
		hostname := result.Get("server_location.hostname").String()
		if hostname == "" {
			// Older SSLyze layouts nest the location differently.
			hostname = result.Get("server_info.server_location.hostname").String()
		}
		if hostname == "" {
			return true
		}

		port := result.Get("server_location.port").Int()
		if port == 0 {
			port = result.Get("server_info.server_location.port").Int()
		}

		host := observation.NormalizeHost(hostname)
		id := fmt.Sprintf("%s:%d", host, port)
		status := result.Get("scan_status").String()
		if status == "" {
			status = result.Get("scan_result.scan_commands_results").Raw
			if status != "" {
				status = "COMPLETED"
			}
		}

		value := result.Raw
		if len(value) > maxResultValue {
			value = value[:maxResultValue]
		}

		findings = append(findings, finding.Finding{
			Host:      host,
			Kind:      finding.KindSSLyzeResult,
			Detail:    finding.Detail{ID: id, Value: status, Context: value},
			FirstSeen: observedAt,
			LastSeen:  observedAt,
		})
		return true
	})

	if len(findings) == 0 {
		return nil, fmt.Errorf("%w: no server results", sharedErrors.ErrUnrecognizedScanOutput)
	}
	return findings, nil
}
