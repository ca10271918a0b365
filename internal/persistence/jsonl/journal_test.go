package jsonl

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mckeimic/mitmscripts/internal/finding"
	"github.com/mckeimic/mitmscripts/internal/store"
)

func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "catalogue.jsonl")
}

func TestRoundTrip_ThousandFindings(t *testing.T) {
	path := journalPath(t)
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}

	src := store.New(j, nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	kinds := []finding.Kind{
		finding.KindMissingHSTS,
		finding.KindWeakXSSProtection,
		finding.KindEmbeddedScript,
		finding.KindKeyMaterialExposure,
	}
	for i := 0; i < 1000; i++ {
		f := finding.New(
			fmt.Sprintf("host-%03d.example.com", i%250),
			kinds[i%len(kinds)],
			finding.Detail{ID: fmt.Sprintf("detail-%d", i), Value: "v"},
			base.Add(time.Duration(i)*time.Second),
		)
		if _, err := src.Upsert(f); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}

	dst := store.New(nil, nil)
	for _, f := range loaded {
		if _, err := dst.Upsert(f); err != nil {
			t.Fatalf("replay upsert: %v", err)
		}
	}

	want := src.Snapshot()
	got := dst.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("catalogue size mismatch: want %d, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("record %d differs:\nwant %+v\ngot  %+v", i, want[i], got[i])
		}
	}
}

func TestReplay_MergesRepeatedObservations(t *testing.T) {
	path := journalPath(t)
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}

	src := store.New(j, nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		f := finding.New("example.com", finding.KindMissingHSTS, finding.Detail{}, t0.Add(time.Duration(i)*time.Minute))
		if _, err := src.Upsert(f); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 5 {
		t.Fatalf("expected 5 journal records, got %d", len(loaded))
	}

	dst := store.New(nil, nil)
	for _, f := range loaded {
		if _, err := dst.Upsert(f); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}

	if dst.Len() != 1 {
		t.Fatalf("expected replay to collapse to one record, got %d", dst.Len())
	}
	got := dst.Snapshot()[0]
	if !got.FirstSeen.Equal(t0) || !got.LastSeen.Equal(t0.Add(4*time.Minute)) {
		t.Errorf("replayed timestamps wrong: first %v last %v", got.FirstSeen, got.LastSeen)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	findings, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if findings != nil {
		t.Errorf("expected empty catalogue, got %d findings", len(findings))
	}
}

func TestLoad_TruncatedTrailingLine(t *testing.T) {
	path := journalPath(t)
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f := finding.New("example.com", finding.KindMissingHSTS, finding.Detail{}, time.Now().UTC())
	if err := j.Append(f); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Simulate a crash mid-append.
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := fh.WriteString(`{"host":"tru`); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	fh.Close()

	findings, err := Load(path)
	if err != nil {
		t.Fatalf("truncated trailing line must be tolerated: %v", err)
	}
	if len(findings) != 1 {
		t.Errorf("expected the intact record only, got %d", len(findings))
	}
}

func TestCompact_RewritesSnapshot(t *testing.T) {
	path := journalPath(t)
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	src := store.New(j, nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		f := finding.New("example.com", finding.KindMissingHSTS, finding.Detail{}, t0.Add(time.Duration(i)*time.Minute))
		if _, err := src.Upsert(f); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := Compact(path, src.Snapshot()); err != nil {
		t.Fatalf("compact: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load after compact: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected one record after compaction, got %d", len(loaded))
	}
	if !loaded[0].FirstSeen.Equal(t0) || !loaded[0].LastSeen.Equal(t0.Add(9*time.Minute)) {
		t.Errorf("compacted record lost merge history: %+v", loaded[0])
	}
}
