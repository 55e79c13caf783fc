package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/ledgercol"
	"github.com/hupe1980/ledgercol/backup"
)

// columnPaths expands a group directory to its column directories. Any
// other directory is treated as a single column.
func columnPaths(dir string) ([]string, error) {
	names, err := backup.ColumnDirs(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []string{dir}, nil
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <dir>",
		Short: "Print version, size and record count of columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := columnPaths(args[0])
			if err != nil {
				return err
			}
			width := a.v.GetInt("width")

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tVERSION\tCOMPUTED\tBYTES\tRECORDS")
			for _, p := range paths {
				ci, err := ledgercol.Inspect(p)
				if err != nil {
					return err
				}
				records := "-"
				if width > 0 {
					records = fmt.Sprint(ci.Records(width))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					ci.Name, optVersion(ci.Version, ci.HasVersion),
					optVersion(ci.Computed, ci.HasComputed), ci.Bytes, records)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("width", 0, "record width in bytes, enables the record count")
	return cmd
}

func optVersion(v ledgercol.Version, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprint(uint64(v))
}
