package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baldanca/bike-ingestor/ingestor"
)

// exitTempFail is EX_TEMPFAIL from sysexits.h; schedulers treat it as
// "try again later".
const exitTempFail = 75

var configPath string

var rootCmd = &cobra.Command{
	Use:           "bikeingest",
	Short:         "Ingest the Seoul bike station list into object storage",
	Long:          `Page through the Seoul Open Data bikeList API and store the complete snapshot as one dated artifact in an S3-compatible bucket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.{yaml,json,toml} when present)")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var se *ingestor.StageError
		if !errors.As(err, &se) {
			// ingestion failures are already logged by the ingestor
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case ingestor.IsRetryable(err):
		return exitTempFail
	default:
		return 1
	}
}
