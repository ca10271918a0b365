package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mckeimic/mitmscripts/internal/sslyze"
	"github.com/mckeimic/mitmscripts/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <sslyze.json>...",
	Short: "Append external SSLyze scan results to the catalogue",
	Long: `Reads SSLyze JSON output files (sslyze --json_out) and appends one
sslyze_result finding per scanned server. Re-importing the same file only
refreshes timestamps; the catalogue never grows duplicates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, journal, err := openCatalogue(true)
		if err != nil {
			return err
		}
		if journal != nil {
			defer journal.Close()
		}

		total := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			info, err := os.Stat(path)
			observedAt := time.Now().UTC()
			if err == nil {
				observedAt = info.ModTime().UTC()
			}

			findings, err := sslyze.ParseResults(data, observedAt)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			inserted := 0
			for _, f := range findings {
				outcome, err := s.Upsert(f)
				if err != nil {
					return fmt.Errorf("record result for %s: %w", f.Host, err)
				}
				if outcome == store.OutcomeInserted {
					inserted++
				}
			}
			total += inserted
			logger.Infow("scan results imported", "file", path, "servers", len(findings), "new", inserted)
		}

		fmt.Printf("imported %d new sslyze results\n", total)
		return nil
	},
}
