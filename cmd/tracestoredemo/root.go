package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tracestoredemo",
	Short: "Drive a tracestore.Store the way a sampling profiler would",
	Long: `tracestoredemo is a harness for github.com/kolkov/tracestore. It
captures real stacks with runtime.Callers, deduplicates them concurrently
through Put, and either writes a pprof profile of what has accumulated
or serves the store's metrics.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
