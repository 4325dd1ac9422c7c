package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/apath"
	"github.com/fenilsonani/conserve/internal/core/exclude"
)

func newDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Show low-level information about the archive",
	}
	cmd.AddCommand(
		newDebugBlocksCommand(),
		newDebugReferencedCommand(),
		newDebugUnreferencedCommand(),
		newDebugIndexCommand(),
	)
	return cmd
}

func newDebugBlocksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks ARCHIVE",
		Short: "List all block hashes present in the blockdir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			blocks, err := archive.BlockDir().Blocks(newMonitor())
			if err != nil {
				return err
			}
			names := make([]string, len(blocks))
			for i, hash := range blocks {
				names[i] = hash.String()
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newDebugReferencedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "referenced ARCHIVE",
		Short: "List block hashes referenced by any backup version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			ids, err := archive.ListBandIds()
			if err != nil {
				return err
			}
			referenced, err := archive.ReferencedBlocks(ids, newMonitor())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(referenced))
			for hash := range referenced {
				names = append(names, hash.String())
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newDebugUnreferencedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unreferenced ARCHIVE",
		Short: "List block hashes no backup version references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
			if err != nil {
				return err
			}
			unreferenced, err := archive.UnreferencedBlocks(newMonitor())
			if err != nil {
				return err
			}
			for _, hash := range unreferenced {
				fmt.Println(hash)
			}
			return nil
		},
	}
}

func newDebugIndexCommand() *cobra.Command {
	var bandFlag string

	cmd := &cobra.Command{
		Use:   "index ARCHIVE",
		Short: "Dump a backup version's index as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(args[0])
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
			enc := json.NewEncoder(os.Stdout)
			it := st.Iter(apath.Root, exclude.Nothing(), newMonitor())
			for {
				e, ok, err := it.Next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
		},
	}

	cmd.Flags().StringVarP(&bandFlag, "backup", "b", "", "Backup version to dump")

	return cmd
}
