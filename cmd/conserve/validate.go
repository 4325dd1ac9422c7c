package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/pkg/conserve"
)

func newValidateCommand() *cobra.Command {
	var quick bool

	cmd := &cobra.Command{
		Use:   "validate ARCHIVE",
		Short: "Check the whole archive for internal consistency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			opts := &conserve.ValidateOptions{SkipBlockHashes: quick}
			stats, err := conserve.Validate(archive, opts, newMonitor())
			if err != nil {
				return err
			}
			if !flagNoStats {
				fmt.Printf("Checked %d bands, %d hunks, %d entries, %d blocks in %s\n",
					stats.BandCount, stats.HunkCount, stats.EntryCount,
					stats.BlockCount, stats.Elapsed.Round(timeRounding))
			}
			if stats.ErrorCount > 0 {
				return fmt.Errorf("%w: %d problems found", errPartialCorruption, stats.ErrorCount)
			}
			fmt.Println("Archive is OK.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false,
		"Check block presence only, without rehashing contents")

	return cmd
}
