package cmd

import (
	"fmt"

	"github.com/mckeimic/mitmscripts/internal/persistence/jsonl"
	"github.com/mckeimic/mitmscripts/internal/store"
)

// openCatalogue replays the journal into a fresh store. When writable, the
// journal is reopened for append and attached after replay so replayed
// records are not written back out.
func openCatalogue(writable bool) (*store.Store, *jsonl.Journal, error) {
	s := store.New(nil, logger)

	recorded, err := jsonl.Load(cataloguePath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalogue: %w", err)
	}
	for _, f := range recorded {
		if _, err := s.Upsert(f); err != nil {
			return nil, nil, fmt.Errorf("replay catalogue: %w", err)
		}
	}
	if len(recorded) > 0 {
		logger.Infow("catalogue loaded", "records", len(recorded), "findings", s.Len())
	}

	if !writable {
		return s, nil, nil
	}

	journal, err := jsonl.Open(cataloguePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalogue journal: %w", err)
	}
	s.AttachJournal(journal)
	return s, journal, nil
}
