// Command digitalcc serves the Colorado College digital collections and
// keeps their search index in sync with the Fedora repository.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFlag   string
	levelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "digitalcc",
	Short:         "Digital collections front end and indexer",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "config environment: local, dev or prod (default $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "override the configured log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
