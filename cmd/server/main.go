package main // Entry point package

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "bizadmin-auth",
	Short:         "Credential and session service",
	Long:          "bizadmin-auth issues access/refresh tokens, manages sessions and runs the password reset and email verification flows.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log := newLogger()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// newLogger writes human readable output on a terminal and JSON otherwise.
func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
