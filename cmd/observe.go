package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mckeimic/mitmscripts/internal/api"
	"github.com/mckeimic/mitmscripts/internal/classify"
	"github.com/mckeimic/mitmscripts/internal/matcher"
	"github.com/mckeimic/mitmscripts/internal/proxy"
)

var (
	observeAddr     string
	observeAPIAddr  string
	observeBodyCap  int64
	observeScanCap  int
	observeCtxBytes int
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Run the intercepting proxy and classify passing traffic",
	Long: `Starts an HTTP(S) intercepting proxy. Every completed exchange is run
through the registered matchers and the resulting findings are upserted into
the catalogue. Clients must trust the proxy CA for TLS interception.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, journal, err := openCatalogue(true)
		if err != nil {
			return err
		}
		if journal != nil {
			defer journal.Close()
		}

		registry := matcher.Default(matcher.KeyMaterialConfig{
			MaxScanBytes: observeScanCap,
			ContextBytes: observeCtxBytes,
		})
		classifier := classify.New(registry, logger)

		tap := proxy.New(proxy.Config{
			Classifier:   classifier,
			Store:        s,
			Logger:       logger,
			MaxBodyBytes: observeBodyCap,
		})

		// Optional read-side API against the live store, so collaborators
		// can poll the catalogue while traffic is being classified.
		if observeAPIAddr != "" {
			srv := api.NewServer(api.Config{
				Catalogue:     s,
				Stats:         classifier.Stats,
				AuthToken:     viper.GetString("api_token"),
				Logger:        logger.Desugar(),
				SSLyzePattern: viper.GetString("sslyze_pattern"),
				RateLimit:     10,
				RateBurst:     20,
			})
			go func() {
				logger.Infow("api listening", "addr", observeAPIAddr)
				if err := http.ListenAndServe(observeAPIAddr, srv); err != nil {
					logger.Errorw("api server stopped", "error", err)
				}
			}()
		}

		return tap.ListenAndServe(observeAddr)
	},
}

func init() {
	observeCmd.Flags().StringVarP(&observeAddr, "listen", "l", ":8080", "proxy listen address")
	observeCmd.Flags().StringVar(&observeAPIAddr, "api-listen", "", "also serve the read-only catalogue API on this address")
	observeCmd.Flags().Int64Var(&observeBodyCap, "body-cap", proxy.DefaultMaxBodyBytes, "max response body bytes buffered per exchange")
	observeCmd.Flags().IntVar(&observeScanCap, "scan-cap", matcher.DefaultScanBytes, "max body bytes scanned for key material")
	observeCmd.Flags().IntVar(&observeCtxBytes, "context-bytes", matcher.DefaultContextBytes, "context window kept around key material matches")
}
