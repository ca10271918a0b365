package sslyze

import (
	"testing"
	"time"

	"github.com/mckeimic/mitmscripts/internal/finding"
)

const sampleOutput = `{
  "sslyze_version": "5.2.0",
  "server_scan_results": [
    {
      "server_location": {"hostname": "Example.com", "port": 443, "ip_address": "93.184.216.34"},
      "scan_status": "COMPLETED",
      "scan_result": {"certificate_info": {"status": "COMPLETED"}}
    },
    {
      "server_location": {"hostname": "other.example.net", "port": 8443},
      "scan_status": "ERROR_NO_TLS_SUPPORT"
    }
  ]
}`

func TestParseResults(t *testing.T) {
	seen := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	findings, err := ParseResults([]byte(sampleOutput), seen)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}

	first := findings[0]
	if first.Host != "example.com" {
		t.Errorf("expected normalized host, got %q", first.Host)
	}
	if first.Kind != finding.KindSSLyzeResult {
		t.Errorf("unexpected kind %q", first.Kind)
	}
	if first.Detail.ID != "example.com:443" {
		t.Errorf("unexpected identity %q", first.Detail.ID)
	}
	if first.Detail.Value != "COMPLETED" {
		t.Errorf("unexpected status %q", first.Detail.Value)
	}
	if !first.FirstSeen.Equal(seen) || !first.LastSeen.Equal(seen) {
		t.Error("findings must carry the supplied observation time")
	}

	if findings[1].Detail.Value != "ERROR_NO_TLS_SUPPORT" {
		t.Errorf("unexpected second status %q", findings[1].Detail.Value)
	}
}

func TestParseResults_NotJSON(t *testing.T) {
	if _, err := ParseResults([]byte("SSLyze 5.2.0 plain text report"), time.Now()); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestParseResults_WrongShape(t *testing.T) {
	if _, err := ParseResults([]byte(`{"results": []}`), time.Now()); err == nil {
		t.Error("expected error when server_scan_results is missing")
	}
}

func TestParseResults_EmptyResults(t *testing.T) {
	if _, err := ParseResults([]byte(`{"server_scan_results": []}`), time.Now()); err == nil {
		t.Error("expected error for empty result set")
	}
}
