package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ledgercol"
)

// problems returns what is wrong with the column at ci for the given width.
func problems(ci *ledgercol.ColumnInfo, width int) []string {
	out := append([]string(nil), ci.Problems...)
	if !ci.HasVersion && len(ci.Problems) == 0 {
		out = append(out, "missing version file")
	}
	if width > 0 {
		if tail := ci.TornTail(width); tail != 0 {
			out = append(out, fmt.Sprintf("torn tail of %d bytes", tail))
		}
	}
	return out
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <dir>",
		Short: "Check version files and data file alignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := columnPaths(args[0])
			if err != nil {
				return err
			}
			width := a.v.GetInt("width")

			bad := 0
			for _, p := range paths {
				ci, err := ledgercol.Inspect(p)
				if err != nil {
					return err
				}
				for _, msg := range problems(ci, width) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ci.Name, msg)
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("verify: %d problem(s) in %s", bad, args[0])
			}
			a.log.Info("verified", "dir", args[0], "columns", len(paths))
			return nil
		},
	}
	cmd.Flags().Int("width", 0, "record width in bytes, enables the torn tail check")
	return cmd
}
