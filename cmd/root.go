package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logger *zap.SugaredLogger
var cataloguePath string

var rootCmd = &cobra.Command{
	Use:   "mitmscripts",
	Short: "Classify intercepted HTTP(S) traffic and maintain a security finding catalogue",
	Long: `mitmscripts watches request/response exchanges passing through an
intercepting proxy, classifies each one against a set of security checks
(HSTS, X-XSS-Protection, embedded scripts, exposed key material), and keeps
a deduplicated, durable catalogue of findings per host.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".mitmscripts")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("mitmscripts")
		viper.AutomaticEnv()

		_ = viper.ReadInConfig()
		applyConfigDefaults()

		if cataloguePath == "" {
			cataloguePath = viper.GetString("catalogue")
		}
		if cataloguePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}
			cataloguePath = filepath.Join(home, ".mitmproxy", "mitmscripts", "catalogue.jsonl")
		}
		cataloguePath = filepath.Clean(cataloguePath)

		// init logger
		l, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l.Sugar()

		logger.Infow("starting", "catalogue", cataloguePath)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mitmscripts.yaml)")
	rootCmd.PersistentFlags().StringVar(&cataloguePath, "catalogue", "", "catalogue journal path (default is ~/.mitmproxy/mitmscripts/catalogue.jsonl)")

	rootCmd.AddCommand(observeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
