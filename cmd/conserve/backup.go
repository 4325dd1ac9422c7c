package main

import (
	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/pkg/conserve"
)

func newBackupCommand() *cobra.Command {
	var noIndex bool

	cmd := &cobra.Command{
		Use:   "backup ARCHIVE SOURCE",
		Short: "Copy a source directory into the archive",
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
			opts := &conserve.BackupOptions{Exclude: excl, NoIndex: noIndex}
			stats, err := conserve.Backup(archive, args[1], opts, newMonitor())
			if err != nil {
				return err
			}
			printBackupStats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noIndex, "no-index", false,
		"Don't use the previous index to skip unchanged files")

	return cmd
}
