package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mckeimic/mitmscripts/internal/export"
	"github.com/mckeimic/mitmscripts/internal/finding"
)

var (
	exportFormat  string
	exportOutput  string
	exportView    string
	exportPattern string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export catalogue views for collaborators",
	Long: `Serializes a catalogue view to JSON or YAML. Views:

  all           every finding
  no-hsts       hosts without HSTS (plain host list)
  scripts       embedded_script findings awaiting external vulnerability scan
  key-material  key_material_exposure findings for alerting
  candidates    hosts eligible for an external SSLyze scan (plain host list)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openCatalogue(false)
		if err != nil {
			return err
		}

		format := export.Format(exportFormat)
		if format != export.FormatJSON && format != export.FormatYAML {
			return fmt.Errorf("unsupported format %q (json or yaml)", exportFormat)
		}

		var out io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		pattern := exportPattern
		if pattern == "" {
			pattern = viper.GetString("sslyze_pattern")
		}

		switch exportView {
		case "all":
			return export.Write(out, s.Snapshot(), format)
		case "no-hsts":
			return export.WriteHosts(out, export.HostsMissingHSTS(s), format)
		case "scripts":
			return export.Write(out, export.ScriptsPendingScan(s), format)
		case "key-material":
			return export.Write(out, export.KeyMaterialAlerts(s), format)
		case "candidates":
			return export.WriteHosts(out, export.SSLyzeCandidates(s, pattern), format)
		default:
			if kind := finding.Kind(exportView); kind.Valid() {
				return export.Write(out, s.Query(func(f finding.Finding) bool { return f.Kind == kind }), format)
			}
			return fmt.Errorf("unknown view %q", exportView)
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format (json or yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportView, "view", "v", "all", "catalogue view to export")
	exportCmd.Flags().StringVar(&exportPattern, "pattern", "", "host glob for scan candidates (default from config sslyze_pattern)")
}
