package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/source"
	"github.com/fenilsonani/conserve/pkg/conserve"
)

func newDiffCommand() *cobra.Command {
	var bandFlag string

	cmd := &cobra.Command{
		Use:   "diff ARCHIVE SOURCE",
		Short: "Compare a stored tree to a local directory",
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
			st, err := archive.OpenStoredTree(sel)
			if err != nil {
				return err
			}
			tree, err := source.Open(args[1], excl)
			if err != nil {
				return err
			}
			diff, err := conserve.Diff(st, tree, excl, newMonitor())
			if err != nil {
				return err
			}
			for _, d := range diff {
				marker := "?"
				switch d.Kind {
				case conserve.DiffAdded:
					marker = "+"
				case conserve.DiffDeleted:
					marker = "-"
				case conserve.DiffChanged:
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, d.Apath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&bandFlag, "backup", "b", "", "Backup version to compare against")

	return cmd
}
