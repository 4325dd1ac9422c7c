package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/pkg/conserve"
)

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init ARCHIVE",
		Short: "Create a new archive",
		Long:  "Create a new empty archive directory ready to receive backups.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := conserve.CreateArchivePath(args[0]); err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}
			fmt.Printf("Created new archive in %s\n", args[0])
			return nil
		},
	}
}
