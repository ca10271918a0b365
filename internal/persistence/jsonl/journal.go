// Package jsonl persists the catalogue as an append-only journal, one JSON
// record per line. Reload replays records through the store's upsert, so the
// merge semantics make replay idempotent and insensitive to append order.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mckeimic/mitmscripts/internal/finding"
	sharedErrors "github.com/mckeimic/mitmscripts/internal/shared/errors"
)

const filePerm = 0o644

// record is the wire form of one journal line.
type record struct {
	Host      string `json:"host"`
	Kind      string `json:"kind"`
	DetailID  string `json:"detail_id,omitempty"`
	Value     string `json:"value,omitempty"`
	Context   string `json:"context,omitempty"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

func toRecord(f finding.Finding) record {
	return record{
		Host:      f.Host,
		Kind:      string(f.Kind),
		DetailID:  f.Detail.ID,
		Value:     f.Detail.Value,
		Context:   f.Detail.Context,
		FirstSeen: f.FirstSeen.Format(time.RFC3339Nano),
		LastSeen:  f.LastSeen.Format(time.RFC3339Nano),
	}
}

func (r record) toFinding() (finding.Finding, error) {
	firstSeen, err := time.Parse(time.RFC3339Nano, r.FirstSeen)
	if err != nil {
		return finding.Finding{}, fmt.Errorf("%w: first_seen: %v", sharedErrors.ErrCatalogueDecode, err)
	}
	lastSeen, err := time.Parse(time.RFC3339Nano, r.LastSeen)
	if err != nil {
		return finding.Finding{}, fmt.Errorf("%w: last_seen: %v", sharedErrors.ErrCatalogueDecode, err)
	}
	f := finding.Finding{
		Host: r.Host,
		Kind: finding.Kind(r.Kind),
		Detail: finding.Detail{
			ID:      r.DetailID,
			Value:   r.Value,
			Context: r.Context,
		},
		FirstSeen: firstSeen,
		LastSeen:  lastSeen,
	}
	if err := f.Validate(); err != nil {
		return finding.Finding{}, fmt.Errorf("%w: %v", sharedErrors.ErrCatalogueDecode, err)
	}
	return f, nil
}

// Journal appends findings to a file, one JSON object per line. Safe for
// concurrent use.
type Journal struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// Open opens (creating if needed) the journal at path in append mode.
func Open(path string) (*Journal, error) {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{path: path, f: f}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one finding as a journal line.
func (j *Journal) Append(f finding.Finding) error {
	data, err := json.Marshal(toRecord(f))
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return sharedErrors.ErrJournalClosed
	}
	if _, err := j.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrJournalAppend, err)
	}
	return nil
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

// Load reads every finding recorded at path. A missing file yields an empty
// catalogue. A truncated trailing line (crash mid-append) is skipped; any
// other undecodable line is an error, since it means the file is not ours.
func Load(path string) ([]finding.Finding, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var findings []finding.Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			if !scanner.Scan() {
				// Partial final line from an interrupted append.
				break
			}
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		fd, err := rec.toFinding()
		if err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		findings = append(findings, fd)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	return findings, nil
}

// Compact rewrites the journal from a catalogue snapshot, dropping the
// superseded per-observation history.
func Compact(path string, findings []finding.Finding) error {
	var buf []byte
	for _, f := range findings {
		data, err := json.Marshal(toRecord(f))
		if err != nil {
			return fmt.Errorf("marshal journal record: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	path = filepath.Clean(path)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, filePerm); err != nil {
		return fmt.Errorf("write compacted journal: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace journal: %w", err)
	}
	return nil
}
