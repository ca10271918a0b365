package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mckeimic/mitmscripts/internal/finding"
)

// Format names a catalogue serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// exportRecord is the serialized form of one finding, shared by both
// formats so exports stay comparable across them.
type exportRecord struct {
	Host      string `json:"host" yaml:"host"`
	Kind      string `json:"kind" yaml:"kind"`
	DetailID  string `json:"detail_id,omitempty" yaml:"detail_id,omitempty"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Context   string `json:"context,omitempty" yaml:"context,omitempty"`
	FirstSeen string `json:"first_seen" yaml:"first_seen"`
	LastSeen  string `json:"last_seen" yaml:"last_seen"`
}

func toRecords(findings []finding.Finding) []exportRecord {
	records := make([]exportRecord, 0, len(findings))
	for _, f := range findings {
		records = append(records, exportRecord{
			Host:      f.Host,
			Kind:      string(f.Kind),
			DetailID:  f.Detail.ID,
			Value:     f.Detail.Value,
			Context:   f.Detail.Context,
			FirstSeen: f.FirstSeen.Format(time.RFC3339),
			LastSeen:  f.LastSeen.Format(time.RFC3339),
		})
	}
	return records
}

// Write serializes findings to w in the requested format.
func Write(w io.Writer, findings []finding.Finding, format Format) error {
	records := toRecords(findings)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode findings: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode findings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush yaml encoder: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}

// WriteHosts serializes a plain host list in the requested format.
func WriteHosts(w io.Writer, hosts []string, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(hosts); err != nil {
			return fmt.Errorf("encode hosts: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(hosts); err != nil {
			return fmt.Errorf("encode hosts: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush yaml encoder: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	return nil
}
