/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"strings"

	"github.com/naukovi-znahidky/client/config"
	"github.com/naukovi-znahidky/client/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	apiURL   string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "znahidky",
	Short: "Client for the Наукові Знахідки content-sharing service",
	Long: `Client for the Наукові Знахідки content-sharing service.

It serves the web client, runs a local development API and talks to
the service from the command line:

	znahidky server
	znahidky login --email olena@example.ua
	znahidky contents list --search квант
`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "base URL of the REST API (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig() config.Config {
	cfg := config.LoadConfig()
	if apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(apiURL, "/")
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.Env)
}
