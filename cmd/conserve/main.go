package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags shared by most commands.
var (
	flagExclude     []string
	flagExcludeFrom []string
	flagNoStats     bool
	flagNoProgress  bool
	flagDebug       bool
)

// errPartialCorruption marks validation problems; it maps to exit
// code 2 rather than 1.
var errPartialCorruption = errors.New("archive has some corruption")

func main() {
	rootCmd := &cobra.Command{
		Use:   "conserve",
		Short: "A robust backup program",
		Long: `Conserve copies files into an archive of content-addressed, deduplicated
blocks, keeps any number of versions, and restores or validates them.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if flagDebug {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).With().Timestamp().Logger()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringArrayVar(&flagExclude, "exclude", nil, "Exclude apaths matching GLOB")
	pf.StringArrayVar(&flagExcludeFrom, "exclude-from", nil, "Read exclusion globs from FILE")
	pf.BoolVar(&flagNoStats, "no-stats", false, "Don't print statistics after the command")
	pf.BoolVar(&flagNoProgress, "no-progress", false, "Don't show progress")
	pf.BoolVarP(&flagDebug, "debug", "D", false, "Print debug output")

	rootCmd.AddCommand(
		newInitCommand(),
		newBackupCommand(),
		newRestoreCommand(),
		newVersionsCommand(),
		newLsCommand(),
		newSizeCommand(),
		newDiffCommand(),
		newValidateCommand(),
		newDeleteCommand(),
		newGcCommand(),
		newDebugCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Msg(err.Error())
		if errors.Is(err, errPartialCorruption) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
