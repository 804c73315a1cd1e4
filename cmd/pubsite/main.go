// Command pubsite runs and maintains a pubsite installation.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsite"
	"github.com/eringen/pubsite/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "pubsite",
	Short:         "A content-managed website engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "pubsite.yaml", "config file")
	rootCmd.AddCommand(serveCmd, checkCmd, importCmd, initCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pubsite version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pubsite %s\n", version)
	},
}

// openStore loads the configuration and opens the database for the
// maintenance commands.
func openStore() (pubsite.SiteConfig, *pubsite.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	store, err := pubsite.NewStore(cfg.DatabasePath, log.With().Str("component", "store").Logger())
	if err != nil {
		return cfg, nil, err
	}
	return cfg, store, nil
}

// loadConfig reads the config file. A missing default file is not an error;
// the environment alone can configure a site.
func loadConfig() (pubsite.SiteConfig, error) {
	path := cfgFile
	if !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return pubsite.LoadConfig(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
