package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/source"
)

func newLsCommand() *cobra.Command {
	var bandFlag string
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "ls [ARCHIVE]",
		Short: "List files in a stored tree or a source directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			excl, err := excludesFromFlags()
			if err != nil {
				return err
			}
			if sourceDir != "" {
				return lsSource(sourceDir, excl)
			}
			if len(args) != 1 {
				return fmt.Errorf("an archive or --source is required")
			}
			return lsStored(args[0], bandFlag, excl)
		},
	}

	cmd.Flags().StringVarP(&bandFlag, "backup", "b", "", "Backup version to list")
	cmd.Flags().StringVar(&sourceDir, "source", "", "List a local directory instead of an archive")

	return cmd
}

func lsStored(archivePath, bandFlag string, excl exclude.Exclude) error {
	archive, err := openArchive(archivePath)
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
	it := st.Iter(apath.Root, excl, newMonitor())
	for {
		e, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Println(e.Apath)
	}
}

func lsSource(dir string, excl exclude.Exclude) error {
	tree, err := source.Open(dir, excl)
	if err != nil {
		return err
	}
	it := tree.Iter()
	for {
		e, more, err := it.Next()
		if err != nil {
			logger.Warn().Msg(err.Error())
			continue
		}
		if !more {
			return nil
		}
		fmt.Println(e.Proto.Apath)
	}
}
