package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
	"github.com/fenilsonani/conserve/internal/core/index"
	"github.com/fenilsonani/conserve/internal/core/source"
)

func newSizeCommand() *cobra.Command {
	var bandFlag string
	var sourceDir string
	var bytesOnly bool

	cmd := &cobra.Command{
		Use:   "size [ARCHIVE]",
		Short: "Show the total size of files in a stored or source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			excl, err := excludesFromFlags()
			if err != nil {
				return err
			}
			var total uint64
			if sourceDir != "" {
				total, err = sourceTreeSize(sourceDir, excl)
			} else {
				if len(args) != 1 {
					return fmt.Errorf("an archive or --source is required")
				}
				total, err = storedTreeSize(args[0], bandFlag, excl)
			}
			if err != nil {
				return err
			}
			if bytesOnly {
				fmt.Println(total)
			} else {
				fmt.Println(humanize.Bytes(total))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&bandFlag, "backup", "b", "", "Backup version to measure")
	cmd.Flags().StringVar(&sourceDir, "source", "", "Measure a local directory instead of an archive")
	cmd.Flags().BoolVar(&bytesOnly, "bytes", false, "Print a raw byte count")

	return cmd
}

func storedTreeSize(archivePath, bandFlag string, excl exclude.Exclude) (uint64, error) {
	archive, err := openArchive(archivePath)
	if err != nil {
		return 0, err
	}
	sel, err := bandSelectionFromFlag(bandFlag)
	if err != nil {
		return 0, err
	}
	st, err := archive.OpenStoredTree(sel)
	if err != nil {
		return 0, err
	}
	var total uint64
	it := st.Iter(apath.Root, excl, newMonitor())
	for {
		e, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return total, nil
		}
		if e.Kind == index.KindFile {
			total += e.Size()
		}
	}
}

func sourceTreeSize(dir string, excl exclude.Exclude) (uint64, error) {
	tree, err := source.Open(dir, excl)
	if err != nil {
		return 0, err
	}
	var total uint64
	it := tree.Iter()
	for {
		e, more, err := it.Next()
		if err != nil {
			logger.Warn().Msg(err.Error())
			continue
		}
		if !more {
			return total, nil
		}
		if e.Proto.Kind == index.KindFile {
			total += uint64(e.Size)
		}
	}
}
