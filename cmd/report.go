package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mckeimic/mitmscripts/internal/export"
	"github.com/mckeimic/mitmscripts/internal/finding"
)

var reportKind string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a summary of the finding catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openCatalogue(false)
		if err != nil {
			return err
		}

		var findings []finding.Finding
		if reportKind != "" {
			kind := finding.Kind(reportKind)
			if !kind.Valid() {
				return fmt.Errorf("unknown finding kind %q", reportKind)
			}
			findings = s.Query(func(f finding.Finding) bool { return f.Kind == kind })
		} else {
			findings = s.Snapshot()
		}

		if len(findings) == 0 {
			fmt.Println("catalogue is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HOST\tKIND\tDETAIL\tFIRST SEEN\tLAST SEEN")
		for _, f := range findings {
			detail := f.Detail.ID
			if detail == "" {
				detail = f.Detail.Value
			}
			if detail == "" {
				detail = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				f.Host,
				formatKindWithColor(f.Kind),
				detail,
				f.FirstSeen.Local().Format(time.DateTime),
				f.LastSeen.Local().Format(time.DateTime),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d findings, %d hosts without HSTS, %d scripts pending scan\n",
			len(findings),
			len(export.HostsMissingHSTS(s)),
			len(export.ScriptsPendingScan(s)),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportKind, "kind", "k", "", "limit the report to one finding kind")
}
