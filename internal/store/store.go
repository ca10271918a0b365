// Package store owns the catalogue: the full set of findings, keyed by
// (host, kind, detail identity). All other components read it through Query;
// only Upsert mutates it.
package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mckeimic/mitmscripts/internal/finding"
)

// Outcome reports what an upsert did.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
)

// journalRetries bounds internal retry of a failed journal append. Append
// failures are a durability concern, never a classification concern, so they
// are retried here and logged, not surfaced to callers.
const journalRetries = 3

// Journal persists upserted findings. Implementations must be safe for
// concurrent appends.
type Journal interface {
	Append(f finding.Finding) error
}

// Store is an in-memory catalogue with optional write-ahead journaling.
// Upserts from concurrently observed flows serialize on the store mutex, so
// the surviving record always carries the earliest FirstSeen and latest
// LastSeen across all writers.
type Store struct {
	mu      sync.RWMutex
	records map[string]*finding.Finding

	journal Journal
	logger  *zap.SugaredLogger
}

// New builds an empty store. journal may be nil for a purely in-memory
// catalogue; logger may be nil to disable diagnostics.
func New(journal Journal, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		records: make(map[string]*finding.Finding),
		journal: journal,
		logger:  logger,
	}
}

// AttachJournal wires a journal after construction. Used when an existing
// journal is replayed into the store first: replay upserts must not be
// re-appended to the file they came from.
func (s *Store) AttachJournal(j Journal) {
	s.mu.Lock()
	s.journal = j
	s.mu.Unlock()
}

// Upsert inserts a finding or folds it into the existing record with the
// same key. The error return is only ever a validation failure of the
// finding itself; journal trouble is handled internally.
func (s *Store) Upsert(f finding.Finding) (Outcome, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	key := f.Key()

	s.mu.Lock()
	existing, ok := s.records[key]
	if ok {
		existing.Merge(f)
	} else {
		record := f
		s.records[key] = &record
	}
	s.mu.Unlock()

	s.appendJournal(f)

	if ok {
		return OutcomeUpdated, nil
	}
	return OutcomeInserted, nil
}

func (s *Store) appendJournal(f finding.Finding) {
	s.mu.RLock()
	journal := s.journal
	s.mu.RUnlock()
	if journal == nil {
		return
	}
	var err error
	for attempt := 0; attempt < journalRetries; attempt++ {
		if err = journal.Append(f); err == nil {
			return
		}
	}
	s.logger.Errorw("journal append failed",
		"host", f.Host,
		"kind", f.Kind,
		"error", err,
	)
}

// Query returns a snapshot of every finding the predicate accepts, ordered
// by host, then FirstSeen. A nil predicate accepts everything. The snapshot
// is a copy; callers can iterate and re-iterate freely.
func (s *Store) Query(pred func(finding.Finding) bool) []finding.Finding {
	s.mu.RLock()
	out := make([]finding.Finding, 0, len(s.records))
	for _, record := range s.records {
		if pred == nil || pred(*record) {
			out = append(out, *record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return finding.Less(out[i], out[j]) })
	return out
}

// Snapshot returns the whole catalogue in query order.
func (s *Store) Snapshot() []finding.Finding {
	return s.Query(nil)
}

// Len reports the number of records in the catalogue.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
