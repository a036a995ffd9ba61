package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/aster/config"
)

var rootCmd = &cobra.Command{
	Use:   "aster",
	Short: "Catalog reconciliation engine",
	Long: `Aster reconciles catalog snapshots (movies, series and their
relationships) into the relational store, recording every field-level
change in an append-only change log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(".")
}

// newLogger builds the process logger with a stdout JSON sink.
func newLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		line, err := json.Marshal(msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode log message: %v\n", err)
			return
		}
		fmt.Println(string(line))
	})
}
