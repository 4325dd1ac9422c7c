package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/pkg/conserve"
)

// bandSelectionFromFlag maps a -b value to a selection policy; empty
// means the latest band.
func bandSelectionFromFlag(bandFlag string) (conserve.BandSelection, error) {
	if bandFlag == "" {
		return conserve.SelectLatest(), nil
	}
	id, err := band.ParseId(bandFlag)
	if err != nil {
		return conserve.BandSelection{}, fmt.Errorf("invalid backup version %q", bandFlag)
	}
	return conserve.SelectBand(id), nil
}

func newRestoreCommand() *cobra.Command {
	var bandFlag string
	var only string
	var forceOverwrite bool

	cmd := &cobra.Command{
		Use:   "restore ARCHIVE DESTINATION",
		Short: "Copy a stored tree out of the archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			excl, err := excludesFromFlags()
			if err != nil {
				return err
			}
			sel, err := bandSelectionFromFlag(bandFlag)
			if err != nil {
				return err
			}
			opts := &conserve.RestoreOptions{
				Exclude:   excl,
				Band:      sel,
				Overwrite: forceOverwrite,
			}
			if only != "" {
				subtree, err := apath.New(only)
				if err != nil {
					return err
				}
				opts.Subtree = subtree
			}
			stats, err := conserve.Restore(archive, args[1], opts, newMonitor())
			if err != nil {
				return err
			}
			printRestoreStats(stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bandFlag, "backup", "b", "", "Backup version to restore (e.g. b0001)")
	cmd.Flags().StringVar(&only, "only", "", "Restore only this apath and its contents")
	cmd.Flags().BoolVar(&forceOverwrite, "force-overwrite", false,
		"Restore into a directory that already has contents")

	return cmd
}
