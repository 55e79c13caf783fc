package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ledgercol"
)

func newCompactCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact <dir>",
		Short: "Delete column directories not listed in --keep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := a.v.GetStringSlice("keep")
			all := a.v.GetBool("all")
			if len(keep) == 0 && !all {
				return errors.New("compact: --keep is required, use --all to delete every column")
			}
			if len(keep) > 0 && all {
				return errors.New("compact: --keep and --all are mutually exclusive")
			}
			g, err := ledgercol.OpenGroup(args[0], ledgercol.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer g.Close()

			if a.v.GetBool("dry-run") {
				stale, err := g.StaleRegions()
				if err != nil {
					return err
				}
				for _, name := range stale {
					if !slices.Contains(keep, name) {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
				}
				return nil
			}

			removed, err := g.RetainRegions(keep)
			for _, name := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}
	cmd.Flags().StringSlice("keep", nil, "columns to retain")
	cmd.Flags().Bool("all", false, "delete every column directory")
	cmd.Flags().Bool("dry-run", false, "only print what would be removed")
	return cmd
}
