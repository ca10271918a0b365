package cmd

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mckeimic/mitmscripts/internal/api"
)

var (
	serveAddr      string
	serveToken     string
	serveRateLimit int
	serveRateBurst int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalogue read-only over HTTP",
	Long: `Exposes the catalogue to collaborators (report generators, scan
schedulers) as a read-only JSON API. Findings cannot be written through this
surface; ingest happens through observe or import.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openCatalogue(false)
		if err != nil {
			return err
		}

		token := serveToken
		if token == "" {
			token = viper.GetString("api_token")
		}

		srv := api.NewServer(api.Config{
			Catalogue:     s,
			AuthToken:     token,
			Logger:        logger.Desugar(),
			SSLyzePattern: viper.GetString("sslyze_pattern"),
			CORSOrigins:   viper.GetStringSlice("cors_origins"),
			RateLimit:     serveRateLimit,
			RateBurst:     serveRateBurst,
		})

		logger.Infow("api listening", "addr", serveAddr)
		return http.ListenAndServe(serveAddr, srv)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "listen", "l", ":8081", "api listen address")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "require X-Auth-Token on every request (default from config api_token)")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 10, "requests per second per client IP (0 disables)")
	serveCmd.Flags().IntVar(&serveRateBurst, "rate-burst", 20, "rate limiter burst size")
}
