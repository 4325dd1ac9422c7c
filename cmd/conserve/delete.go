package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/band"
	"github.com/fenilsonani/conserve/pkg/conserve"
)

func newDeleteCommand() *cobra.Command {
	var bandsFlag string
	var dryRun bool
	var breakLock bool

	cmd := &cobra.Command{
		Use:   "delete ARCHIVE",
		Short: "Delete backup versions and the blocks only they reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bandsFlag == "" {
				return fmt.Errorf("-b is required; use gc to delete only unreferenced blocks")
			}
			var targets []band.Id
			for _, name := range strings.Split(bandsFlag, ",") {
				id, err := band.ParseId(strings.TrimSpace(name))
				if err != nil {
					return fmt.Errorf("invalid backup version %q", name)
				}
				targets = append(targets, id)
			}
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			opts := &conserve.DeleteOptions{DryRun: dryRun, BreakLock: breakLock}
			stats, err := archive.DeleteBands(targets, opts, newMonitor())
			if err != nil {
				return err
			}
			printDeleteStats(stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bandsFlag, "backup", "b", "", "Backup versions to delete, comma separated")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Measure but don't delete anything")
	cmd.Flags().BoolVar(&breakLock, "break-lock", false, "Break an abandoned gc lock")

	return cmd
}

func newGcCommand() *cobra.Command {
	var dryRun bool
	var breakLock bool

	cmd := &cobra.Command{
		Use:   "gc ARCHIVE",
		Short: "Delete blocks no backup version references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			opts := &conserve.DeleteOptions{DryRun: dryRun, BreakLock: breakLock}
			stats, err := archive.DeleteBands(nil, opts, newMonitor())
			if err != nil {
				return err
			}
			printDeleteStats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Measure but don't delete anything")
	cmd.Flags().BoolVar(&breakLock, "break-lock", false, "Break an abandoned gc lock")

	return cmd
}
