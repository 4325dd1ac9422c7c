package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/conserve/internal/core/band"
)

func newVersionsCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "versions ARCHIVE",
		Short: "List backup versions in the archive",
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
			for _, id := range ids {
				if short {
					fmt.Println(id)
					continue
				}
				b, err := band.Open(archive.Transport(), id)
				if err != nil {
					fmt.Printf("%-12s unreadable: %s\n", id, err)
					continue
				}
				info, err := b.Info()
				if err != nil {
					return err
				}
				state := "incomplete"
				detail := ""
				if info.IsClosed {
					state = "complete"
					detail = fmt.Sprintf(" %6d hunks", info.IndexHunkCount)
				}
				fmt.Printf("%-12s %s %-10s%s\n",
					id, info.StartTime.Format("2006-01-02 15:04:05"), state, detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "List version names only")

	return cmd
}
